// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"

	"go.mau.fi/util/random"
)

// GeneratedPasswordLength is the length of the random password given to new
// accounts. Users authenticate through the directory, so it is never shown.
const GeneratedPasswordLength = 24

// UserAPI is the part of the webadmin client the user service uses.
type UserAPI interface {
	AccountChecker
	ListUsers(ctx context.Context) ([]string, error)
	AddUser(ctx context.Context, email, password string) error
	RemoveUser(ctx context.Context, email string) error
}

// UserService provisions and removes mail accounts.
type UserService struct {
	base
	api UserAPI
}

var _ WritableService = (*UserService)(nil)

func NewUserService(api UserAPI, opts Options) *UserService {
	return &UserService{
		base: newBase(KindUsers, opts, []string{AttrEmail}),
		api:  api,
	}
}

func (s *UserService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, s.readError("list users", "", err)
	}
	s.log.Debug().Int("count", len(users)).Msg("Listed users")
	return pivotsOf(users), nil
}

func (s *UserService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	exists, err := s.api.UserExists(ctx, email)
	if err != nil {
		return nil, s.readError("check user", email, err)
	}
	if !exists {
		return nil, nil
	}
	return s.newBean(email, Datasets{AttrEmail: {email}}), nil
}

func (s *UserService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *UserService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)

	switch mod.Operation {
	case OperationCreate:
		if !user.Valid() {
			log.Error().Msg("Cannot create an account without a domain part")
			return false
		}
		exists, ok := accountExists(ctx, s.api, log, user.Email)
		if !ok {
			return false
		}
		if exists {
			log.Error().Msg("Account already exists")
			return false
		}
		return wrote(log, "add user", s.api.AddUser(ctx, user.Email, random.String(GeneratedPasswordLength)))
	case OperationDelete:
		return wrote(log, "remove user", s.api.RemoveUser(ctx, user.Email))
	case OperationUpdate, OperationChangeID:
		log.Debug().Msg("Nothing to change on an account, ignored")
		return true
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}
