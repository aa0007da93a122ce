// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by read calls when the requested resource does not
// exist on the server. Aliases and forwards also report an empty list as not
// found.
var ErrNotFound = errors.New("james: resource not found")

// ClientError is returned when the webadmin API answers with a status the
// caller did not expect. It carries enough of the exchange to diagnose a
// contract violation.
type ClientError struct {
	URI        string
	Method     string
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("james: %s %s: unexpected status %d", e.Method, e.URI, e.StatusCode)
	}
	return fmt.Sprintf("james: %s %s: unexpected status %d: %s", e.Method, e.URI, e.StatusCode, e.Body)
}

// TransportError wraps failures that happen before a response is received,
// or while reading or decoding it.
type TransportError struct {
	URI    string
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("james: %s %s: %v", e.Method, e.URI, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err was caused by a transport failure rather
// than by the server rejecting the request.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
