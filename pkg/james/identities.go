// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"context"
	"net/http"
	"net/url"
)

// DefaultIdentity returns the default identity of a user, or ErrNotFound if
// the user has none yet.
func (c *Client) DefaultIdentity(ctx context.Context, email string) (Identity, error) {
	var identities []Identity
	uri := c.endpoint(url.Values{"default": {"true"}}, "users", email, "identities")
	if err := c.getJSON(ctx, uri, &identities); err != nil {
		return Identity{}, err
	}
	if len(identities) == 0 {
		return Identity{}, ErrNotFound
	}
	return identities[0], nil
}

// CreateIdentity adds an identity to the user named by identity.Email. The
// server does not require the account to exist.
func (c *Client) CreateIdentity(ctx context.Context, identity Identity) error {
	return c.write(ctx, http.MethodPost, c.endpoint(nil, "users", identity.Email, "identities"), identity)
}
