// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector synchronizes directory data into James/TMail through the
// webadmin API.
//
// Every resource kind (accounts, aliases, forwards, address mappings, quota,
// identities and domain contacts) is a [WritableService]. A sync driver lists
// the remote pivots, reads each remote entry with GetBean and asks Apply to
// converge it towards the source values described by a [Modifications].
//
// # Reconciliation
//
// Multi-valued kinds use a [Reconciler]: the items to add and to remove are
// the two set differences between the desired and the observed values. Every
// item is attempted even after a failure and Apply reports true only when all
// writes succeeded. Forwards are never removed on update, and a forward to
// the user's own address is skipped unless allow_local_copy_forwards is set.
//
// # Errors
//
// Apply never returns an error. Read failures in GetListPivots and GetBean
// are returned, wrapped in [ErrCommunication] when the webadmin API could not
// be reached.
//
// # Domain contacts
//
// The [DomainFilter] restricts which domains have their contacts synchronized.
// It can be replaced at runtime through [Connector.ReloadDomains].
package connector
