// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"context"
	"net/http"
)

// ListAliasUsers returns the users that have at least one alias.
func (c *Client) ListAliasUsers(ctx context.Context) ([]string, error) {
	var users []string
	if err := c.getJSON(ctx, c.endpoint(nil, "address", "aliases"), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Aliases returns the aliases of a user. A user without aliases is reported
// as ErrNotFound.
func (c *Client) Aliases(ctx context.Context, email string) ([]Alias, error) {
	var aliases []Alias
	if err := c.getJSON(ctx, c.endpoint(nil, "address", "aliases", email), &aliases); err != nil {
		return nil, err
	}
	if len(aliases) == 0 {
		return nil, ErrNotFound
	}
	return aliases, nil
}

// AddAlias makes alias.Source an alias of email.
func (c *Client) AddAlias(ctx context.Context, email string, alias Alias) error {
	return c.write(ctx, http.MethodPut, c.endpoint(nil, "address", "aliases", email, "sources", alias.Source), nil)
}

// RemoveAlias removes one alias source of email.
func (c *Client) RemoveAlias(ctx context.Context, email string, alias Alias) error {
	return c.write(ctx, http.MethodDelete, c.endpoint(nil, "address", "aliases", email, "sources", alias.Source), nil)
}

// ListForwardUsers returns the users that have at least one forward.
func (c *Client) ListForwardUsers(ctx context.Context) ([]string, error) {
	var users []string
	if err := c.getJSON(ctx, c.endpoint(nil, "address", "forwards"), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Forwards returns the forwards of a user. A user without forwards is
// reported as ErrNotFound.
func (c *Client) Forwards(ctx context.Context, email string) ([]Forward, error) {
	var forwards []Forward
	if err := c.getJSON(ctx, c.endpoint(nil, "address", "forwards", email), &forwards); err != nil {
		return nil, err
	}
	if len(forwards) == 0 {
		return nil, ErrNotFound
	}
	return forwards, nil
}

func (c *Client) AddForward(ctx context.Context, email string, forward Forward) error {
	return c.write(ctx, http.MethodPut, c.endpoint(nil, "address", "forwards", email, "targets", forward.MailAddress), nil)
}

func (c *Client) RemoveForward(ctx context.Context, email string, forward Forward) error {
	return c.write(ctx, http.MethodDelete, c.endpoint(nil, "address", "forwards", email, "targets", forward.MailAddress), nil)
}

// AddressMappings returns the Address-typed mappings of a user. Other
// mapping types (aliases, forwards, domain mappings) are filtered out. An
// empty result is not an error.
func (c *Client) AddressMappings(ctx context.Context, email string) ([]AddressMapping, error) {
	var dtos []mappingDTO
	if err := c.getJSON(ctx, c.endpoint(nil, "mappings", "user", email), &dtos); err != nil {
		return nil, err
	}
	mappings := make([]AddressMapping, 0, len(dtos))
	for _, m := range dtos {
		if m.Type == MappingTypeAddress {
			mappings = append(mappings, AddressMapping{Mapping: m.Mapping})
		}
	}
	return mappings, nil
}

func (c *Client) AddAddressMapping(ctx context.Context, email string, mapping AddressMapping) error {
	return c.write(ctx, http.MethodPost, c.endpoint(nil, "mappings", "address", email, "targets", mapping.Mapping), nil)
}

func (c *Client) RemoveAddressMapping(ctx context.Context, email string, mapping AddressMapping) error {
	return c.write(ctx, http.MethodDelete, c.endpoint(nil, "mappings", "address", email, "targets", mapping.Mapping), nil)
}
