// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/james"
	"github.com/aiku/james-sync/pkg/james/jamestest"
)

const (
	bob   = "bob@james.org"
	alice = "alice@james.org"
	andre = "andre@james.org"
)

// newFakeJames starts a fake webadmin server and a client talking to it.
func newFakeJames(t *testing.T) (*james.Client, *jamestest.Server) {
	t.Helper()
	srv := jamestest.NewServer()
	t.Cleanup(srv.Close)
	return james.NewClient(srv.URL(), jamestest.Token, srv.Server.Client(), zerolog.Nop()), srv
}

func testOptions() Options {
	return Options{Log: zerolog.Nop()}
}

func create(email string, attrs Datasets) Modifications {
	return Modifications{Operation: OperationCreate, MainIdentifier: email, Attributes: attrs}
}

func update(email string, attrs Datasets) Modifications {
	return Modifications{Operation: OperationUpdate, MainIdentifier: email, Attributes: attrs}
}

func remove(email string) Modifications {
	return Modifications{Operation: OperationDelete, MainIdentifier: email, Attributes: Datasets{}}
}

// assertNoWrites fails when the fake received anything but reads.
func assertNoWrites(t *testing.T, srv *jamestest.Server) {
	t.Helper()
	if w := srv.Writes(); len(w) != 0 {
		t.Errorf("expected no writes, got %+v", w)
	}
}

// pivotKeys returns the emails of a pivot map.
func pivotKeys(pivots map[string]Datasets) map[string]bool {
	out := make(map[string]bool, len(pivots))
	for k := range pivots {
		out[k] = true
	}
	return out
}

// expectApply fails the test when Apply does not return want.
func expectApply(t *testing.T, svc WritableService, mod Modifications, want bool) {
	t.Helper()
	if got := svc.Apply(context.Background(), mod); got != want {
		t.Errorf("Apply(%s %s): got %v, want %v", mod.Operation, mod.MainIdentifier, got, want)
	}
}

// mustGetBean reads the bean of email and fails the test on error.
func mustGetBean(t *testing.T, svc WritableService, email string) Bean {
	t.Helper()
	bean, err := svc.GetBean(context.Background(), "email", Datasets{AttrEmail: {email}})
	if err != nil {
		t.Fatalf("GetBean(%s): %v", email, err)
	}
	return bean
}

// mustPivots lists the pivots of svc and fails the test on error.
func mustPivots(t *testing.T, svc WritableService) map[string]bool {
	t.Helper()
	pivots, err := svc.GetListPivots(context.Background())
	if err != nil {
		t.Fatalf("GetListPivots: %v", err)
	}
	return pivotKeys(pivots)
}

// assertNoCalls fails when the fake received any request.
func assertNoCalls(t *testing.T, srv *jamestest.Server) {
	t.Helper()
	if c := srv.Calls(); len(c) != 0 {
		t.Errorf("expected no calls, got %+v", c)
	}
}
