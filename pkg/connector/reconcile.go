// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import "context"

// Diff returns the items of desired missing from observed, and the items of
// observed missing from desired. Duplicates are dropped and the input order
// is kept.
func Diff[T comparable](desired, observed []T) (toAdd, toRemove []T) {
	inDesired := make(map[T]struct{}, len(desired))
	for _, item := range desired {
		inDesired[item] = struct{}{}
	}
	inObserved := make(map[T]struct{}, len(observed))
	for _, item := range observed {
		inObserved[item] = struct{}{}
	}
	seen := make(map[T]struct{}, len(desired))
	for _, item := range desired {
		if _, ok := inObserved[item]; ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		toAdd = append(toAdd, item)
	}
	clear(seen)
	for _, item := range observed {
		if _, ok := inDesired[item]; ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		toRemove = append(toRemove, item)
	}
	return toAdd, toRemove
}

// Reconciler converges the remote items of one user towards a desired set.
// Add and Remove perform a single remote write and report success; failures
// are expected to be logged by the callee.
type Reconciler[T comparable] struct {
	Add    func(ctx context.Context, item T) bool
	Remove func(ctx context.Context, item T) bool

	// KeepOnAdd filters the add phase. Nil keeps every item.
	KeepOnAdd func(item T) bool
	// NoRemove makes Converge strictly additive. Items present remotely but
	// absent from the desired set are left alone.
	NoRemove bool
	// RemoveFirst runs the remove phase before the add phase.
	RemoveFirst bool
}

// AddAll creates every item that passes KeepOnAdd. Every item is attempted;
// the result is true only if all writes succeeded.
func (r Reconciler[T]) AddAll(ctx context.Context, items []T) bool {
	ok := true
	for _, item := range items {
		if r.KeepOnAdd != nil && !r.KeepOnAdd(item) {
			continue
		}
		if !r.Add(ctx, item) {
			ok = false
		}
	}
	return ok
}

// RemoveAll deletes every item, attempting all of them.
func (r Reconciler[T]) RemoveAll(ctx context.Context, items []T) bool {
	ok := true
	for _, item := range items {
		if !r.Remove(ctx, item) {
			ok = false
		}
	}
	return ok
}

// Converge applies desired − observed as adds and, unless NoRemove is set,
// observed − desired as removes. Both phases always run.
func (r Reconciler[T]) Converge(ctx context.Context, desired, observed []T) bool {
	toAdd, toRemove := Diff(desired, observed)
	if r.NoRemove {
		return r.AddAll(ctx, toAdd)
	}
	if r.RemoveFirst {
		removed := r.RemoveAll(ctx, toRemove)
		added := r.AddAll(ctx, toAdd)
		return removed && added
	}
	added := r.AddAll(ctx, toAdd)
	removed := r.RemoveAll(ctx, toRemove)
	return added && removed
}
