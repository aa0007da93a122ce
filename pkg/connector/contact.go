// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/aiku/james-sync/pkg/james"
)

// ContactAPI manages domain contacts. *james.Client implements it.
type ContactAPI interface {
	ListContacts(ctx context.Context) ([]string, error)
	Contact(ctx context.Context, email string) (james.Contact, error)
	AddContact(ctx context.Context, contact james.Contact) error
	UpdateContact(ctx context.Context, contact james.Contact) error
	RemoveContact(ctx context.Context, email string) error
}

// DomainFilter is the reloadable allow-list of domains whose contacts are
// synchronized. A nil list allows every domain.
type DomainFilter struct {
	lock    sync.RWMutex
	domains map[string]struct{}
}

// NewDomainFilter creates a filter. Passing nil allows every domain.
func NewDomainFilter(domains []string) *DomainFilter {
	f := &DomainFilter{}
	f.Replace(domains)
	return f
}

// ParseDomainList splits a comma-separated domain list. An empty string
// yields nil.
func ParseDomainList(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (f *DomainFilter) Allowed(domain string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.domains == nil {
		return true
	}
	_, ok := f.domains[strings.ToLower(domain)]
	return ok
}

// Replace swaps the allow-list and returns how many domains were added and
// removed compared to the previous list.
func (f *DomainFilter) Replace(domains []string) (added, removed int) {
	var next map[string]struct{}
	if domains != nil {
		next = make(map[string]struct{}, len(domains))
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				next[d] = struct{}{}
			}
		}
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for d := range next {
		if _, ok := f.domains[d]; !ok {
			added++
		}
	}
	for d := range f.domains {
		if _, ok := next[d]; !ok {
			removed++
		}
	}
	f.domains = next
	return added, removed
}

// List returns the sorted allow-list, or nil when every domain is allowed.
func (f *DomainFilter) List() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.domains == nil {
		return nil
	}
	out := make([]string, 0, len(f.domains))
	for d := range f.domains {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// ContactService synchronizes TMail domain contacts for the allowed domains.
type ContactService struct {
	base
	api     ContactAPI
	domains *DomainFilter
}

var _ WritableService = (*ContactService)(nil)

// NewContactService creates the contact service. A nil filter allows every
// domain.
func NewContactService(api ContactAPI, domains *DomainFilter, opts Options) *ContactService {
	if domains == nil {
		domains = NewDomainFilter(nil)
	}
	return &ContactService{
		base:    newBase(KindContacts, opts, []string{AttrFirstname, AttrSurname}),
		api:     api,
		domains: domains,
	}
}

// Domains returns the allow-list the service consults.
func (s *ContactService) Domains() *DomainFilter {
	return s.domains
}

func (s *ContactService) GetListPivots(ctx context.Context) (map[string]Datasets, error) {
	emails, err := s.api.ListContacts(ctx)
	if err != nil {
		return nil, s.readError("list domain contacts", "", err)
	}
	return pivotsOf(emails), nil
}

func (s *ContactService) GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error) {
	email, ok := pivotEmail(pivot)
	if !ok {
		return nil, nil
	}
	if !s.domains.Allowed(MakeUser(email).Domain()) {
		return nil, nil
	}
	contact, err := s.api.Contact(ctx, email)
	if errors.Is(err, james.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, s.readError("get domain contact", email, err)
	}
	datasets := Datasets{AttrEmail: {contact.EmailAddress}}
	if contact.Firstname != nil {
		datasets[AttrFirstname] = []string{*contact.Firstname}
	}
	if contact.Surname != nil {
		datasets[AttrSurname] = []string{*contact.Surname}
	}
	return s.newBean(contact.EmailAddress, datasets), nil
}

func (s *ContactService) Apply(ctx context.Context, mod Modifications) bool {
	return s.finish(mod.Operation, s.apply(ctx, mod))
}

func (s *ContactService) apply(ctx context.Context, mod Modifications) bool {
	log, ok := s.opLogger(mod)
	if !ok {
		return false
	}
	user := MakeUser(mod.MainIdentifier)
	if !s.domains.Allowed(user.Domain()) {
		log.Debug().Str("domain", user.Domain()).Msg("Domain is not synchronized, skipping contact")
		return false
	}

	switch mod.Operation {
	case OperationCreate:
		return wrote(log, "add domain contact", s.api.AddContact(ctx, contactFrom(mod, optionalFirst)))
	case OperationUpdate:
		contact := contactFrom(mod, presentName)
		if contact.Firstname == nil && contact.Surname == nil {
			log.Error().Msg("Update carries neither firstname nor surname")
			return false
		}
		return wrote(log, "update domain contact", s.api.UpdateContact(ctx, contact))
	case OperationDelete:
		return wrote(log, "remove domain contact", s.api.RemoveContact(ctx, user.Email))
	default:
		log.Error().Msg("Unsupported operation for domain contacts")
		return false
	}
}

// contactFrom builds the contact of a modification. Creates leave empty names
// out; updates send them so that the remote value is cleared.
func contactFrom(mod Modifications, name func(Datasets, string) *string) james.Contact {
	return james.Contact{
		EmailAddress: mod.MainIdentifier,
		Firstname:    name(mod.Attributes, AttrFirstname),
		Surname:      name(mod.Attributes, AttrSurname),
	}
}
