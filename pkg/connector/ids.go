// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"strings"

	"github.com/aiku/james-sync/pkg/james"
)

// Kind names one synchronized resource type.
type Kind string

const (
	KindAliases         Kind = "aliases"
	KindForwards        Kind = "forwards"
	KindAddressMappings Kind = "address_mappings"
	KindQuota           Kind = "quota"
	KindIdentities      Kind = "identities"
	KindContacts        Kind = "contacts"
	KindUsers           Kind = "users"
)

// AllKinds lists every kind in the order a full sync runs them. Accounts come
// first so that per-user resources find their owner.
var AllKinds = []Kind{
	KindUsers,
	KindAliases,
	KindForwards,
	KindAddressMappings,
	KindQuota,
	KindIdentities,
	KindContacts,
}

// ParseKind validates a kind name, accepting '-' in place of '_'.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// User is the owner of per-user resources, identified by email address.
type User struct {
	Email string
}

// MakeUser creates a User from a main identifier.
func MakeUser(mainIdentifier string) User {
	return User{Email: mainIdentifier}
}

// Domain returns the domain part of the address, or "" if there is none.
func (u User) Domain() string {
	_, domain, _ := james.SplitAddress(u.Email)
	return domain
}

// LocalPart returns the part of the address before the '@'.
func (u User) LocalPart() string {
	local, _, _ := james.SplitAddress(u.Email)
	return local
}

// Valid reports whether the address has both a local part and a domain.
func (u User) Valid() bool {
	_, _, ok := james.SplitAddress(u.Email)
	return ok
}
