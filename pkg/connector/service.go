// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/james"
)

var (
	// ErrCommunication wraps read failures caused by the transport, so that
	// the driver can tell them apart from the server rejecting a request.
	ErrCommunication = errors.New("communication with the mail server failed")
	ErrUnknownKind   = errors.New("unknown resource kind")
)

// WritableService is the contract between the sync driver and one resource
// kind.
type WritableService interface {
	// GetListPivots returns the pivot attributes of every remote entry,
	// keyed by email.
	GetListPivots(ctx context.Context) (map[string]Datasets, error)
	// GetBean reads the remote state of one entry. A nil bean with a nil
	// error means the entry does not exist remotely.
	GetBean(ctx context.Context, pivotName string, pivot Datasets) (Bean, error)
	// Apply writes one change and reports whether it fully succeeded. It
	// never returns an error: failures are logged.
	Apply(ctx context.Context, mod Modifications) bool
	// GetWriteDatasetIDs lists the attributes this service writes.
	GetWriteDatasetIDs() []string
}

// AccountChecker reports whether a mail account exists.
type AccountChecker interface {
	UserExists(ctx context.Context, email string) (bool, error)
}

// Options holds what every service needs besides its API.
type Options struct {
	Log             zerolog.Logger
	BeanFactory     BeanFactory
	WriteAttributes []string
}

type base struct {
	kind     Kind
	log      zerolog.Logger
	newBean  BeanFactory
	writeIDs []string
}

func newBase(kind Kind, opts Options, defaultWrite []string) base {
	b := base{
		kind:     kind,
		log:      opts.Log.With().Str("component", "connector").Str("kind", string(kind)).Logger(),
		newBean:  opts.BeanFactory,
		writeIDs: opts.WriteAttributes,
	}
	if b.newBean == nil {
		b.newBean = NewSimpleBean
	}
	if b.writeIDs == nil {
		b.writeIDs = defaultWrite
	}
	return b
}

func (b *base) GetWriteDatasetIDs() []string {
	return slices.Clone(b.writeIDs)
}

// opLogger returns a logger scoped to one Apply call, or false when the
// request has no main identifier.
func (b *base) opLogger(mod Modifications) (zerolog.Logger, bool) {
	if mod.MainIdentifier == "" {
		b.log.Error().Stringer("operation", mod.Operation).Msg("Main identifier is needed to apply a modification")
		return b.log, false
	}
	return b.log.With().
		Str("email", mod.MainIdentifier).
		Stringer("operation", mod.Operation).
		Logger(), true
}

// finish records the outcome of an Apply call.
func (b *base) finish(op Operation, ok bool) bool {
	applyTotal.WithLabelValues(string(b.kind), op.String(), resultLabel(ok)).Inc()
	return ok
}

// readError converts a failed read into the error returned to the driver.
func (b *base) readError(action, email string, err error) error {
	b.log.Error().Err(err).Str("email", email).Str("action", action).Msg("Failed to read from mail server")
	if james.IsTransport(err) {
		return fmt.Errorf("%w: failed to %s: %w", ErrCommunication, action, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// wrote logs a failed write and reports success.
func wrote(log zerolog.Logger, action string, err error) bool {
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to write to mail server")
		return false
	}
	log.Debug().Str("action", action).Msg("Wrote to mail server")
	return true
}

// accountExists wraps AccountChecker for write paths: ok is false when the
// check itself failed.
func accountExists(ctx context.Context, checker AccountChecker, log zerolog.Logger, email string) (exists, ok bool) {
	exists, err := checker.UserExists(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check account existence")
		return false, false
	}
	return exists, true
}

// pivotEmail extracts the email from pivot attributes. The email attribute is
// preferred; a single-attribute pivot is accepted under any name.
func pivotEmail(pivot Datasets) (string, bool) {
	if v, ok := pivot.First(AttrEmail); ok && v != "" {
		return v, true
	}
	if len(pivot) == 1 {
		for _, values := range pivot {
			if len(values) > 0 && values[0] != "" {
				return values[0], true
			}
		}
	}
	return "", false
}

// pivotsOf builds the pivot map of a list of emails.
func pivotsOf(emails []string) map[string]Datasets {
	pivots := make(map[string]Datasets, len(emails))
	for _, email := range emails {
		pivots[email] = Datasets{AttrEmail: {email}}
	}
	return pivots
}
