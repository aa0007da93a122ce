// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"

	"github.com/aiku/james-sync/pkg/james"
)

// QuotaAPI is the part of the webadmin client the quota service uses.
type QuotaAPI interface {
	AccountChecker
	ListUsers(ctx context.Context) ([]string, error)
	QuotaSize(ctx context.Context, email string) (james.QuotaSize, error)
	SetQuotaSize(ctx context.Context, email string, size james.QuotaSize) error
	DeleteQuotaSize(ctx context.Context, email string) error
}

// QuotaService synchronizes the storage quota of each user. A value of -1
// means unlimited; an absent value means the user has no quota of its own.
type QuotaService struct {
	base
	api QuotaAPI
}

var _ WritableService = (*QuotaService)(nil)

func NewQuotaService(api QuotaAPI, opts Options) *QuotaService {
	return &QuotaService{
		base: newBase(KindQuota, opts, []string{AttrMailQuotaSize}),
		api:  api,
	}
}

func (s *QuotaService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, s.readError("list users", "", err)
	}
	return pivotsOf(users), nil
}

func (s *QuotaService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	size, err := s.api.QuotaSize(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		s.log.Debug().Str("pivot", pivotName).Str("email", email).Msg("User has no quota size")
		return nil, nil
	} else if err != nil {
		return nil, s.readError("get quota size", email, err)
	}
	return s.newBean(email, Datasets{AttrEmail: {email}, AttrMailQuotaSize: {size.String()}}), nil
}

func (s *QuotaService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *QuotaService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)

	switch mod.Operation {
	case OperationChangeID:
		log.Warn().Msg("Changing the ID of a quota is not supported")
		return false
	case OperationCreate:
		size, present, err := quotaFrom(mod.Attributes)
		if err != nil {
			log.Warn().Err(err).Msg("Invalid quota size value in source")
			return false
		} else if !present {
			log.Error().Msg("Create carries no quota size")
			return false
		}
		exists, ok := accountExists(ctx, s.api, log, user.Email)
		if !ok {
			return false
		}
		if !exists {
			log.Info().Msg("Account does not exist yet, deferring quota creation")
			return true
		}
		return wrote(log.With().Stringer("size", size).Logger(), "set quota size", s.api.SetQuotaSize(ctx, user.Email, size))
	case OperationUpdate:
		size, present, err := quotaFrom(mod.Attributes)
		if err != nil {
			log.Warn().Err(err).Msg("Invalid quota size value in source")
			return false
		} else if !present {
			return wrote(log, "delete quota size", s.api.DeleteQuotaSize(ctx, user.Email))
		}
		return wrote(log.With().Stringer("size", size).Logger(), "set quota size", s.api.SetQuotaSize(ctx, user.Email, size))
	case OperationDelete:
		log.Debug().Msg("User is gone from the source, deleting its quota size")
		return wrote(log, "delete quota size", s.api.DeleteQuotaSize(ctx, user.Email))
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}

// quotaFrom parses the first quota value. present is false when the
// attribute is absent or has no values.
func quotaFrom(d Datasets) (size james.QuotaSize, present bool, err error) {
	raw, ok := d.First(AttrMailQuotaSize)
	if !ok {
		return 0, false, nil
	}
	size, err = james.ParseQuotaSize(raw)
	if err != nil {
		return 0, true, err
	}
	return size, true, nil
}
