// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package james is a client for the Apache James and TMail webadmin API,
// covering the resources the sync connector manages: users, aliases,
// forwards, address mappings, quotas, JMAP identities and domain contacts.
//
// Reads return [ErrNotFound] when a resource is absent, a [*ClientError] for
// any other unexpected status and a [*TransportError] when no usable response
// was received. Writes succeed only on a 2xx answer.
package james
