// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"context"
	"net/http"
)

// ListUsers returns the usernames of every account on the server.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	var users []userDTO
	if err := c.getJSON(ctx, c.endpoint(nil, "users"), &users); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names, nil
}

// UserExists checks an account with HEAD /users/{email}. Statuses other than
// 200 and 404 are returned as a *ClientError.
func (c *Client) UserExists(ctx context.Context, email string) (bool, error) {
	uri := c.endpoint(nil, "users", email)
	resp, err := c.do(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return false, err
	}
	switch resp.status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		c.log.Error().
			Str("email", email).
			Int("status", resp.status).
			Msg("Unexpected status while checking user existence")
		return false, resp.clientError(http.MethodHead, uri)
	}
}

type passwordBody struct {
	Password string `json:"password"`
}

// AddUser creates an account with the given password.
func (c *Client) AddUser(ctx context.Context, email, password string) error {
	return c.write(ctx, http.MethodPut, c.endpoint(nil, "users", email), passwordBody{Password: password})
}

// RemoveUser deletes an account.
func (c *Client) RemoveUser(ctx context.Context, email string) error {
	return c.write(ctx, http.MethodDelete, c.endpoint(nil, "users", email), nil)
}
