// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxResponseSize caps how much of a response body is read (8 MB). User
// listings on large domains are the biggest payloads.
const maxResponseSize = 8 << 20

// DefaultTimeout is used when NewClient is given a nil *http.Client.
const DefaultTimeout = 30 * time.Second

// Client talks to the James / TMail webadmin API. It holds no per-user state
// and is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a webadmin client for baseURL authenticating with a
// bearer token.
func NewClient(baseURL, token string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		log:     log.With().Str("component", "james_client").Logger(),
	}
}

// BaseURL returns the server root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// escapeSegment percent-encodes one path component. Reserved characters such
// as '+' in sub-addressed emails and '@' are always escaped.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (c *Client) endpoint(query url.Values, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(escapeSegment(s))
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) clientError(method, uri string) *ClientError {
	return &ClientError{URI: uri, Method: method, StatusCode: r.status, Body: string(r.body)}
}

func (c *Client) do(ctx context.Context, method, uri string, body any) (*response, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, &TransportError{URI: uri, Method: method, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, &TransportError{URI: uri, Method: method, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, &TransportError{URI: uri, Method: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, &TransportError{URI: uri, Method: method, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	c.log.Debug().
		Str("method", method).
		Str("uri", uri).
		Int("status", resp.StatusCode).
		Msg("Webadmin request")
	return &response{status: resp.StatusCode, body: data}, nil
}

// getJSON issues a GET and decodes a 2xx body into out. A 404 maps to
// ErrNotFound.
func (c *Client) getJSON(ctx context.Context, uri string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	if resp.status == http.StatusNotFound {
		return ErrNotFound
	}
	if !resp.ok() {
		return resp.clientError(http.MethodGet, uri)
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &TransportError{URI: uri, Method: http.MethodGet, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// write issues a mutating call. Anything outside the 2xx family is logged
// and returned as a *ClientError.
func (c *Client) write(ctx context.Context, method, uri string, body any) error {
	resp, err := c.do(ctx, method, uri, body)
	if err != nil {
		return err
	}
	if !resp.ok() {
		cerr := resp.clientError(method, uri)
		c.log.Error().
			Str("method", method).
			Str("uri", uri).
			Int("status", resp.status).
			Str("body", cerr.Body).
			Msg("Webadmin rejected write")
		return cerr
	}
	return nil
}
