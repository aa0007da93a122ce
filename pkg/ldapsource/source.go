// Copyright 2024-2026 Aiku AI

// Package ldapsource reads the desired state of mail accounts from an LDAP
// directory.
package ldapsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/connector"
)

//go:generate mockgen -destination=mocks/mock_searcher.go -package=mocks -source=source.go Searcher

// Searcher is the part of an LDAP connection the source uses.
type Searcher interface {
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// DialFunc opens a searcher and returns the function that closes it.
type DialFunc func(ctx context.Context) (Searcher, func(), error)

// Source lists directory entries as connector datasets.
type Source struct {
	cfg  Config
	dial DialFunc
	log  zerolog.Logger

	mu       sync.Mutex
	searcher Searcher
	closer   func()
}

// New creates a source on top of an existing searcher. It never reconnects.
// cfg must have been post-processed.
func New(cfg Config, searcher Searcher, log zerolog.Logger) *Source {
	return &Source{
		cfg:      cfg,
		searcher: searcher,
		closer:   func() {},
		log:      log.With().Str("component", "ldap_source").Logger(),
	}
}

// Open creates a source connected with dial. The source dials again when the
// connection is closing or a search fails with a network error.
func Open(ctx context.Context, cfg Config, dial DialFunc, log zerolog.Logger) (*Source, error) {
	s := New(cfg, nil, log)
	s.dial = dial
	if err := s.reconnect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Dial connects and binds to the directory, retrying with exponential
// backoff. Invalid credentials are not retried.
func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*Source, error) {
	log = log.With().Str("component", "ldap_source").Str("url", cfg.URL).Logger()
	return Open(ctx, cfg, func(ctx context.Context) (Searcher, func(), error) {
		conn, err := backoff.Retry(ctx, func() (*ldap.Conn, error) {
			return dialOnce(cfg)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(cfg.DialRetries),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn().Err(err).Dur("retry_in", next).Msg("Cannot contact directory server")
			}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("ldap: %w", err)
		}
		log.Info().Str("base_dn", cfg.BaseDN).Msg("Connected to directory server")
		return conn, func() { conn.Close() }, nil
	}, log)
}

// reconnect replaces the current searcher. s.mu must be held or s unshared.
func (s *Source) reconnect(ctx context.Context) error {
	s.closer()
	s.searcher, s.closer = nil, func() {}
	searcher, closer, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.searcher, s.closer = searcher, closer
	return nil
}

// stale reports whether the searcher must be dialed again before use.
func (s *Source) stale() bool {
	if s.dial == nil {
		return false
	}
	if s.searcher == nil {
		return true
	}
	closing, ok := s.searcher.(interface{ IsClosing() bool })
	return ok && closing.IsClosing()
}

func dialOnce(cfg Config) (*ldap.Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	tlsCfg := &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: cfg.TLSSkipVerify,
	}
	conn, err := ldap.DialURL(cfg.URL,
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.RequestTimeout}),
		ldap.DialWithTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(cfg.RequestTimeout)
	if cfg.StartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
				return nil, backoff.Permanent(fmt.Errorf("bind: %w", err))
			}
			return nil, fmt.Errorf("bind: %w", err)
		}
	}
	return conn, nil
}

func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closer()
	s.closer = func() {}
	if s.dial != nil {
		s.searcher = nil
	}
}

// requestedAttributes returns the directory attributes to fetch, sorted.
func (s *Source) requestedAttributes() []string {
	attrs := make([]string, 0, len(s.cfg.Attributes))
	for _, attr := range s.cfg.Attributes {
		if !slices.Contains(attrs, attr) {
			attrs = append(attrs, attr)
		}
	}
	slices.Sort(attrs)
	return attrs
}

func (s *Source) search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if s.cfg.PageSize > 0 {
		return s.searcher.SearchWithPaging(req, s.cfg.PageSize)
	}
	return s.searcher.Search(req)
}

// Entries searches the directory and returns the datasets of every entry
// keyed by email. Every configured dataset is present in the result, empty
// when the entry lacks the attribute.
func (s *Source) Entries(ctx context.Context) (map[string]connector.Datasets, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := ldap.NewSearchRequest(
		s.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, int(s.cfg.RequestTimeout/time.Second), false,
		s.cfg.Filter,
		s.requestedAttributes(), nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale() {
		s.log.Info().Msg("Directory connection is closed, reconnecting")
		if err := s.reconnect(ctx); err != nil {
			return nil, err
		}
	}
	res, err := s.search(req)
	if err != nil && s.dial != nil && ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		s.log.Warn().Err(err).Msg("Directory connection lost, reconnecting")
		if err := s.reconnect(ctx); err != nil {
			return nil, err
		}
		res, err = s.search(req)
	}
	if err != nil {
		return nil, fmt.Errorf("ldap: search: %w", err)
	}

	emailAttr := s.cfg.Attributes[connector.AttrEmail]
	entries := make(map[string]connector.Datasets, len(res.Entries))
	for _, entry := range res.Entries {
		email := strings.TrimSpace(entry.GetAttributeValue(emailAttr))
		if email == "" {
			s.log.Warn().Str("dn", entry.DN).Str("attribute", emailAttr).Msg("Skipping entry without email")
			continue
		}
		if _, dup := entries[email]; dup {
			s.log.Warn().Str("dn", entry.DN).Str("email", email).Msg("Duplicate email in directory, keeping the last entry")
		}
		datasets := make(connector.Datasets, len(s.cfg.Attributes))
		for dataset, attr := range s.cfg.Attributes {
			values := entry.GetAttributeValues(attr)
			if values == nil {
				values = []string{}
			}
			datasets[dataset] = values
		}
		datasets[connector.AttrEmail] = []string{email}
		entries[email] = datasets
	}
	s.log.Debug().Int("entries", len(entries)).Int("results", len(res.Entries)).Msg("Read directory entries")
	return entries, nil
}
