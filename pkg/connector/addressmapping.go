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

// AddressMappingAPI is the part of the webadmin client the address mapping
// service uses. *james.Client implements it.
type AddressMappingAPI interface {
	AccountChecker
	ListUsers(ctx context.Context) ([]string, error)
	AddressMappings(ctx context.Context, email string) ([]james.AddressMapping, error)
	AddAddressMapping(ctx context.Context, email string, mapping james.AddressMapping) error
	RemoveAddressMapping(ctx context.Context, email string, mapping james.AddressMapping) error
}

// AddressMappingService synchronizes Address-typed user mappings. Entries
// exist only for existing accounts, so a create means the account is missing
// and is deferred to a later run.
type AddressMappingService struct {
	base
	api AddressMappingAPI
}

var _ WritableService = (*AddressMappingService)(nil)

func NewAddressMappingService(api AddressMappingAPI, opts Options) *AddressMappingService {
	return &AddressMappingService{
		base: newBase(KindAddressMappings, opts, []string{AttrAddressMappings}),
		api:  api,
	}
}

func (s *AddressMappingService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, s.readError("list users", "", err)
	}
	return pivotsOf(users), nil
}

func (s *AddressMappingService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	exists, err := s.api.UserExists(ctx, email)
	if err != nil {
		return nil, s.readError("check user", email, err)
	}
	if !exists {
		s.log.Debug().Str("pivot", pivotName).Str("email", email).Msg("Account does not exist")
		return nil, nil
	}
	mappings, err := s.observed(ctx, email)
	if err != nil {
		return nil, s.readError("get address mappings", email, err)
	}
	values := make([]string, 0, len(mappings))
	for _, m := range mappings {
		values = append(values, m.Mapping)
	}
	return s.newBean(email, Datasets{AttrEmail: {email}, AttrAddressMappings: values}), nil
}

// observed reads the current mappings; a user without any is an empty set.
func (s *AddressMappingService) observed(ctx context.Context, email string) ([]james.AddressMapping, error) {
	mappings, err := s.api.AddressMappings(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		return nil, nil
	}
	return mappings, err
}

func (s *AddressMappingService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *AddressMappingService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)

	switch mod.Operation {
	case OperationChangeID:
		log.Warn().Msg("Changing the ID of address mappings is not supported, ignored")
		return true
	case OperationCreate:
		log.Info().Msg("Account does not exist yet, create it before provisioning its address mappings")
		return true
	case OperationUpdate:
		desired, present := addressMappingsFrom(mod.Attributes)
		if !present {
			log.Error().Msg("Update carries no addressMappings attribute")
			return false
		}
		observed, err := s.observed(ctx, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read address mappings for update")
			return false
		}
		return s.reconciler(user, log).Converge(ctx, desired, observed)
	case OperationDelete:
		observed, err := s.observed(ctx, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read address mappings for deletion")
			return false
		}
		return s.reconciler(user, log).RemoveAll(ctx, observed)
	default:
		log.Error().Msg("Unknown operation")
		return false
	}
}

func (s *AddressMappingService) reconciler(user User, log zerolog.Logger) Reconciler[james.AddressMapping] {
	return Reconciler[james.AddressMapping]{
		Add: func(ctx context.Context, m james.AddressMapping) bool {
			return wrote(log.With().Str("mapping", m.Mapping).Logger(), "add address mapping", s.api.AddAddressMapping(ctx, user.Email, m))
		},
		Remove: func(ctx context.Context, m james.AddressMapping) bool {
			return wrote(log.With().Str("mapping", m.Mapping).Logger(), "remove address mapping", s.api.RemoveAddressMapping(ctx, user.Email, m))
		},
	}
}

func addressMappingsFrom(d Datasets) ([]james.AddressMapping, bool) {
	return valuesOf(d, AttrAddressMappings, func(v string) james.AddressMapping { return james.AddressMapping{Mapping: v} })
}
