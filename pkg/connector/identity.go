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

// DefaultIdentitySortOrder is the sort order of pre-provisioned identities.
const DefaultIdentitySortOrder = 0

// IdentityAPI reads and creates JMAP identities.
type IdentityAPI interface {
	ListUsers(ctx context.Context) ([]string, error)
	DefaultIdentity(ctx context.Context, email string) (james.Identity, error)
	CreateIdentity(ctx context.Context, identity james.Identity) error
}

// IdentityService pre-provisions the default JMAP identity of each user.
// Identities are only ever created: users own them afterwards.
type IdentityService struct {
	base
	api IdentityAPI
}

var _ WritableService = (*IdentityService)(nil)

func NewIdentityService(api IdentityAPI, opts Options) *IdentityService {
	return &IdentityService{
		base: newBase(KindIdentities, opts, []string{AttrFirstname, AttrSurname}),
		api:  api,
	}
}

func (s *IdentityService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, s.readError("list users", "", err)
	}
	return pivotsOf(users), nil
}

func (s *IdentityService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	_, err := s.api.DefaultIdentity(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		s.log.Debug().Str("pivot", pivotName).Str("email", email).Msg("User does not have a default identity yet")
		return nil, nil
	} else if err != nil {
		return nil, s.readError("get default identity", email, err)
	}
	return s.newBean(email, Datasets{AttrEmail: {email}}), nil
}

func (s *IdentityService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *IdentityService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}

	switch mod.Operation {
	case OperationChangeID:
		log.Warn().Msg("Changing the ID of an identity is not supported, ignored")
		return true
	case OperationCreate:
		identity := identityFrom(mod)
		return wrote(log.With().Str("name", identity.Name).Logger(), "create default identity", s.api.CreateIdentity(ctx, identity))
	case OperationUpdate:
		log.Warn().Msg("Updating an identity is not supported, ignored")
		return true
	case OperationDelete:
		log.Warn().Msg("Deleting an identity is not supported, ignored")
		return true
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}

func identityFrom(mod Modifications) james.Identity {
	return james.Identity{
		Name: james.DisplayName(
			optionalFirst(mod.Attributes, AttrFirstname),
			optionalFirst(mod.Attributes, AttrSurname),
			mod.MainIdentifier,
		),
		Email:     mod.MainIdentifier,
		SortOrder: DefaultIdentitySortOrder,
	}
}
