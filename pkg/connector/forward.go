// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/james"
)

// ForwardAPI is the part of the webadmin client the forward service uses.
type ForwardAPI interface {
	AccountChecker
	ListForwardUsers(ctx context.Context) ([]string, error)
	Forwards(ctx context.Context, email string) ([]james.Forward, error)
	AddForward(ctx context.Context, email string, forward james.Forward) error
	RemoveForward(ctx context.Context, email string, forward james.Forward) error
}

// ForwardService synchronizes forwarding targets. Updates only ever add
// forwards: a target missing from the source may have been set up by the
// user through another channel and is kept.
type ForwardService struct {
	base
	api            ForwardAPI
	allowLocalCopy bool
}

var _ WritableService = (*ForwardService)(nil)

// NewForwardService creates the forward service. Unless allowLocalCopy is
// set, a forward to the user's own address (a local copy) is never created.
func NewForwardService(api ForwardAPI, allowLocalCopy bool, opts Options) *ForwardService {
	return &ForwardService{
		base:           newBase(KindForwards, opts, []string{AttrForwards}),
		api:            api,
		allowLocalCopy: allowLocalCopy,
	}
}

func (s *ForwardService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListForwardUsers(ctx)
	if err != nil {
		return nil, s.readError("list users with forwards", "", err)
	}
	s.log.Debug().Int("count", len(users)).Msg("Listed users with forwards")
	return pivotsOf(users), nil
}

func (s *ForwardService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	forwards, err := s.api.Forwards(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		s.log.Debug().Str("pivot", pivotName).Str("email", email).Msg("User has no forwards yet")
		return nil, nil
	} else if err != nil {
		return nil, s.readError("get forwards", email, err)
	}
	targets := make([]string, 0, len(forwards))
	for _, f := range forwards {
		targets = append(targets, f.MailAddress)
	}
	return s.newBean(email, Datasets{AttrEmail: {email}, AttrForwards: targets}), nil
}

func (s *ForwardService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *ForwardService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)
	rec := s.reconciler(user, log)

	switch mod.Operation {
	case OperationChangeID:
		log.Warn().Msg("Changing the ID of forwards is not supported, ignored")
		return true
	case OperationCreate:
		exists, ok := accountExists(ctx, s.api, log, user.Email)
		if !ok {
			return false
		}
		if !exists {
			log.Info().Msg("Account does not exist yet, deferring forward creation")
			return true
		}
		desired, _ := forwardsFrom(mod.Attributes)
		return rec.AddAll(ctx, desired)
	case OperationUpdate:
		desired, present := forwardsFrom(mod.Attributes)
		if !present {
			log.Error().Msg("Update carries no forwards attribute")
			return false
		}
		observed, err := s.api.Forwards(ctx, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read forwards for update")
			return false
		}
		return rec.Converge(ctx, desired, observed)
	case OperationDelete:
		observed, err := s.api.Forwards(ctx, user.Email)
		if errors.Is(err, james.ErrNotFound) {
			return true
		} else if err != nil {
			log.Error().Err(err).Msg("Failed to read forwards for deletion")
			return false
		}
		log.Debug().Int("count", len(observed)).Msg("User is gone from the source, removing its forwards")
		return rec.RemoveAll(ctx, observed)
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}

func (s *ForwardService) reconciler(user User, log zerolog.Logger) Reconciler[james.Forward] {
	return Reconciler[james.Forward]{
		Add: func(ctx context.Context, f james.Forward) bool {
			return wrote(log.With().Str("forward", f.MailAddress).Logger(), "add forward", s.api.AddForward(ctx, user.Email, f))
		},
		Remove: func(ctx context.Context, f james.Forward) bool {
			return wrote(log.With().Str("forward", f.MailAddress).Logger(), "remove forward", s.api.RemoveForward(ctx, user.Email, f))
		},
		KeepOnAdd: func(f james.Forward) bool {
			return s.allowLocalCopy || f.MailAddress != user.Email
		},
		NoRemove: true,
	}
}

func forwardsFrom(d Datasets) ([]james.Forward, bool) {
	return valuesOf(d, AttrForwards, func(v string) james.Forward { return james.Forward{MailAddress: v} })
}
