// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// QuotaSize returns the storage quota of a user. A user without a quota
// (204 No Content, 404 or an empty body) is reported as ErrNotFound.
func (c *Client) QuotaSize(ctx context.Context, email string) (QuotaSize, error) {
	uri := c.endpoint(nil, "quota", "users", email, "size")
	resp, err := c.do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return 0, err
	}
	switch {
	case resp.status == http.StatusNotFound, resp.status == http.StatusNoContent:
		return 0, ErrNotFound
	case !resp.ok():
		return 0, resp.clientError(http.MethodGet, uri)
	}
	raw := strings.TrimSpace(string(resp.body))
	if raw == "" {
		return 0, ErrNotFound
	}
	size, err := ParseQuotaSize(raw)
	if err != nil {
		return 0, &TransportError{URI: uri, Method: http.MethodGet, Err: fmt.Errorf("failed to decode quota size %q: %w", raw, err)}
	}
	return size, nil
}

// SetQuotaSize sets the storage quota of a user. UnlimitedQuota is sent as -1.
func (c *Client) SetQuotaSize(ctx context.Context, email string, size QuotaSize) error {
	return c.write(ctx, http.MethodPut, c.endpoint(nil, "quota", "users", email, "size"), []byte(size.String()))
}

// DeleteQuotaSize removes the storage quota of a user.
func (c *Client) DeleteQuotaSize(ctx context.Context, email string) error {
	return c.write(ctx, http.MethodDelete, c.endpoint(nil, "quota", "users", email, "size"), nil)
}
