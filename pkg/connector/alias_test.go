// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"testing"

	"github.com/aiku/james-sync/pkg/james/jamestest"
)

// expectAliases compares the aliases of email with want, in any order.
func expectAliases(t *testing.T, srv *jamestest.Server, email string, want ...string) {
	t.Helper()
	got := slices.Sorted(slices.Values(srv.AliasesOf(email)))
	want = slices.Sorted(slices.Values(want))
	if !slices.Equal(got, want) {
		t.Errorf("aliases of %s: got %v, want %v", email, got, want)
	}
}

func TestAliasService_GetListPivots(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "bob-alias@james.org")
	srv.SetAliases(alice, "alice-alias@james.org")
	srv.SetAliases(andre)
	svc := NewAliasService(client, testOptions())

	pivots, err := svc.GetListPivots(context.Background())
	if err != nil {
		t.Fatalf("GetListPivots: %v", err)
	}
	if got, want := pivotKeys(pivots), map[string]bool{bob: true, alice: true}; !reflect.DeepEqual(got, want) {
		t.Errorf("pivots: got %v, want %v", got, want)
	}
	if got, want := pivots[bob], (Datasets{AttrEmail: {bob}}); !reflect.DeepEqual(got, want) {
		t.Errorf("pivot of bob: got %v, want %v", got, want)
	}
}

func TestAliasService_GetBean(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "b1@james.org", "b2@james.org")
	svc := NewAliasService(client, testOptions())

	bean := mustGetBean(t, svc, bob)
	if bean == nil {
		t.Fatal("GetBean(bob): got nil")
	}
	if bean.MainIdentifier() != bob {
		t.Errorf("MainIdentifier: got %q, want %q", bean.MainIdentifier(), bob)
	}
	if got, want := bean.Datasets()[AttrSources], []string{"b1@james.org", "b2@james.org"}; !slices.Equal(got, want) {
		t.Errorf("sources: got %v, want %v", got, want)
	}

	if bean := mustGetBean(t, svc, alice); bean != nil {
		t.Errorf("GetBean(alice): got %v, a user without aliases is not found", bean)
	}
	bean, err := svc.GetBean(context.Background(), "email", Datasets{})
	if err != nil || bean != nil {
		t.Errorf("GetBean with an empty pivot: got %v, %v, want nothing", bean, err)
	}
}

func TestAliasService_GetBeanServerError(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.FailEndpoints["/address/aliases"] = true
	svc := NewAliasService(client, testOptions())

	_, err := svc.GetBean(context.Background(), "email", Datasets{AttrEmail: {bob}})
	if err == nil {
		t.Fatal("GetBean: expected an error")
	}
	if errors.Is(err, ErrCommunication) {
		t.Errorf("a rejection is not a communication error: %v", err)
	}
}

func TestAliasService_GetBeanUnreachable(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.Close()
	svc := NewAliasService(client, testOptions())

	_, err := svc.GetBean(context.Background(), "email", Datasets{AttrEmail: {bob}})
	if !errors.Is(err, ErrCommunication) {
		t.Errorf("GetBean: got %v, want ErrCommunication", err)
	}
}

func TestAliasService_CreateMissingAccountIsDeferred(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, create(bob, Datasets{AttrSources: {"b1@james.org"}}), true)
	assertNoWrites(t, srv)
}

func TestAliasService_Create(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.AddUser(bob)
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, create(bob, Datasets{AttrSources: {"b1@james.org", "b2@james.org"}}), true)
	expectAliases(t, srv, bob, "b1@james.org", "b2@james.org")
}

func TestAliasService_Update(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.AddUser(bob)
	srv.SetAliases(bob, "old@james.org", "kept@james.org")
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, update(bob, Datasets{AttrSources: {"kept@james.org", "new@james.org"}}), true)
	expectAliases(t, srv, bob, "kept@james.org", "new@james.org")

	writes := srv.Writes()
	if len(writes) != 2 {
		t.Fatalf("writes: got %+v, want 2", writes)
	}
	if writes[0].Method != http.MethodDelete || writes[1].Method != http.MethodPut {
		t.Errorf("removals come before additions, got %s then %s", writes[0].Method, writes[1].Method)
	}
}

func TestAliasService_UpdateIsIdempotent(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "b1@james.org")
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, update(bob, Datasets{AttrSources: {"b1@james.org"}}), true)
	assertNoWrites(t, srv)
}

func TestAliasService_UpdateWithoutAttribute(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "b1@james.org")
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, update(bob, Datasets{AttrForwards: {"x@james.org"}}), false)
	assertNoCalls(t, srv)
}

func TestAliasService_UpdateEmptyRemovesAll(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "b1@james.org", "b2@james.org")
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, update(bob, Datasets{AttrSources: {}}), true)
	expectAliases(t, srv, bob)
}

func TestAliasService_UpdateWithoutObservedAliases(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, update(bob, Datasets{AttrSources: {"b1@james.org"}}), false)
	assertNoWrites(t, srv)
}

func TestAliasService_Delete(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.SetAliases(bob, "b1@james.org", "b2@james.org")
	srv.SetAliases(alice, "a1@james.org")
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, remove(bob), true)
	expectAliases(t, srv, bob)
	expectAliases(t, srv, alice, "a1@james.org")

	// Nothing to delete.
	expectApply(t, svc, remove(andre), true)
}

func TestAliasService_PartialFailure(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	srv.AddUser(bob)
	srv.FailEndpoints["/sources/bad@james.org"] = true
	svc := NewAliasService(client, testOptions())

	// Every item is attempted.
	expectApply(t, svc, create(bob, Datasets{AttrSources: {"bad@james.org", "good@james.org"}}), false)
	expectAliases(t, srv, bob, "good@james.org")
}

func TestAliasService_ContractErrors(t *testing.T) {
	t.Parallel()
	client, srv := newFakeJames(t)
	svc := NewAliasService(client, testOptions())

	expectApply(t, svc, Modifications{Operation: OperationCreate}, false)
	expectApply(t, svc, Modifications{Operation: OperationUnknown, MainIdentifier: bob}, false)
	expectApply(t, svc, Modifications{Operation: OperationChangeID, MainIdentifier: bob}, true)
	assertNoCalls(t, srv)
}

func TestAliasService_WriteDatasetIDs(t *testing.T) {
	t.Parallel()
	if got := NewAliasService(nil, testOptions()).GetWriteDatasetIDs(); !slices.Equal(got, []string{AttrSources}) {
		t.Errorf("default: got %v", got)
	}
	svc := NewAliasService(nil, Options{WriteAttributes: []string{"custom"}})
	if got := svc.GetWriteDatasetIDs(); !slices.Equal(got, []string{"custom"}) {
		t.Errorf("override: got %v", got)
	}
}
