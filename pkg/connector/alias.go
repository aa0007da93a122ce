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

//go:generate mockgen -destination=mocks/mock_alias_api.go -package=mocks -source=alias.go -aux_files=github.com/aiku/james-sync/pkg/connector=service.go AliasAPI

// AliasAPI is the part of the webadmin client the alias service uses.
type AliasAPI interface {
	AccountChecker
	ListAliasUsers(ctx context.Context) ([]string, error)
	Aliases(ctx context.Context, email string) ([]james.Alias, error)
	AddAlias(ctx context.Context, email string, alias james.Alias) error
	RemoveAlias(ctx context.Context, email string, alias james.Alias) error
}

// AliasService synchronizes the alias sources of each user.
type AliasService struct {
	base
	api AliasAPI
}

var _ WritableService = (*AliasService)(nil)

func NewAliasService(api AliasAPI, opts Options) *AliasService {
	return &AliasService{
		base: newBase(KindAliases, opts, []string{AttrSources}),
		api:  api,
	}
}

func (s *AliasService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListAliasUsers(ctx)
	if err != nil {
		return nil, s.readError("list users with aliases", "", err)
	}
	return pivotsOf(users), nil
}

func (s *AliasService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	aliases, err := s.api.Aliases(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		s.log.Debug().Str("pivot", pivotName).Str("email", email).Msg("User has no aliases")
		return nil, nil
	} else if err != nil {
		return nil, s.readError("get aliases", email, err)
	}
	sources := make([]string, 0, len(aliases))
	for _, a := range aliases {
		sources = append(sources, a.Source)
	}
	return s.newBean(email, Datasets{AttrEmail: {email}, AttrSources: sources}), nil
}

func (s *AliasService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *AliasService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)
	rec := s.reconciler(user, log)

	switch mod.Operation {
	case OperationChangeID:
		log.Warn().Msg("Changing the ID of aliases is not supported, ignored")
		return true
	case OperationCreate:
		exists, ok := accountExists(ctx, s.api, log, user.Email)
		if !ok {
			return false
		}
		if !exists {
			log.Info().Msg("Account does not exist yet, deferring alias creation")
			return true
		}
		desired, _ := aliasesFrom(mod.Attributes)
		return rec.AddAll(ctx, desired)
	case OperationUpdate:
		desired, present := aliasesFrom(mod.Attributes)
		if !present {
			log.Error().Msg("Update carries no sources attribute")
			return false
		}
		observed, err := s.api.Aliases(ctx, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read aliases for update")
			return false
		}
		return rec.Converge(ctx, desired, observed)
	case OperationDelete:
		observed, err := s.api.Aliases(ctx, user.Email)
		if errors.Is(err, james.ErrNotFound) {
			return true
		} else if err != nil {
			log.Error().Err(err).Msg("Failed to read aliases for deletion")
			return false
		}
		return rec.RemoveAll(ctx, observed)
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}

func (s *AliasService) reconciler(user User, log zerolog.Logger) Reconciler[james.Alias] {
	return Reconciler[james.Alias]{
		Add: func(ctx context.Context, a james.Alias) bool {
			return wrote(log.With().Str("alias", a.Source).Logger(), "add alias", s.api.AddAlias(ctx, user.Email, a))
		},
		Remove: func(ctx context.Context, a james.Alias) bool {
			return wrote(log.With().Str("alias", a.Source).Logger(), "remove alias", s.api.RemoveAlias(ctx, user.Email, a))
		},
		RemoveFirst: true,
	}
}

func aliasesFrom(d Datasets) ([]james.Alias, bool) {
	return valuesOf(d, AttrSources, func(v string) james.Alias { return james.Alias{Source: v} })
}
