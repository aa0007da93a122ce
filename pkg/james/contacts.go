// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListContacts returns the email address of every domain contact.
func (c *Client) ListContacts(ctx context.Context) ([]string, error) {
	var emails []string
	if err := c.getJSON(ctx, c.endpoint(nil, "domains", "contacts", "all"), &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (c *Client) contactURI(email string) (string, error) {
	local, domain, ok := SplitAddress(email)
	if !ok {
		return "", fmt.Errorf("invalid contact address %q", email)
	}
	return c.endpoint(nil, "domains", domain, "contacts", local), nil
}

// Contact returns a domain contact. Any non-2xx answer is reported as
// ErrNotFound.
func (c *Client) Contact(ctx context.Context, email string) (Contact, error) {
	uri, err := c.contactURI(email)
	if err != nil {
		return Contact{}, err
	}
	resp, err := c.do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return Contact{}, err
	}
	if !resp.ok() {
		return Contact{}, ErrNotFound
	}
	var contact Contact
	if err := json.Unmarshal(resp.body, &contact); err != nil {
		return Contact{}, &TransportError{URI: uri, Method: http.MethodGet, Err: fmt.Errorf("failed to decode contact: %w", err)}
	}
	return contact, nil
}

// AddContact creates a domain contact in the domain of its address.
func (c *Client) AddContact(ctx context.Context, contact Contact) error {
	_, domain, ok := SplitAddress(contact.EmailAddress)
	if !ok {
		return fmt.Errorf("invalid contact address %q", contact.EmailAddress)
	}
	return c.write(ctx, http.MethodPost, c.endpoint(nil, "domains", domain, "contacts"), contact)
}

// UpdateContact replaces the names of a domain contact. Absent names are
// omitted from the body and keep their current value.
func (c *Client) UpdateContact(ctx context.Context, contact Contact) error {
	uri, err := c.contactURI(contact.EmailAddress)
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodPut, uri, contact.Names())
}

func (c *Client) RemoveContact(ctx context.Context, email string) error {
	uri, err := c.contactURI(email)
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodDelete, uri, nil)
}
