// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package james

import (
	"strconv"
	"strings"
)

// Alias is one source address delivering to a user.
type Alias struct {
	Source string `json:"source"`
}

// Forward is one forwarding target of a user.
type Forward struct {
	MailAddress string `json:"mailAddress"`
}

// AddressMapping is a user mapping of type Address.
type AddressMapping struct {
	Mapping string
}

// MappingTypeAddress is the only mapping type the connector manages. The
// create and delete endpoints only accept this type.
const MappingTypeAddress = "Address"

type mappingDTO struct {
	Type    string `json:"type"`
	Mapping string `json:"mapping"`
}

type userDTO struct {
	Username string `json:"username"`
}

// QuotaSize is a storage quota in bytes. UnlimitedQuota removes the limit,
// which is a different state from having no quota at all.
type QuotaSize int64

const UnlimitedQuota QuotaSize = -1

// IsUnlimited reports whether q is the unlimited sentinel.
func (q QuotaSize) IsUnlimited() bool {
	return q == UnlimitedQuota
}

func (q QuotaSize) String() string {
	return strconv.FormatInt(int64(q), 10)
}

// ParseQuotaSize parses the raw integer representation used both by the
// webadmin API and by directory attributes.
func ParseQuotaSize(s string) (QuotaSize, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return QuotaSize(v), nil
}

// Identity is a JMAP identity. Only the fields the connector writes are kept.
type Identity struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	SortOrder int    `json:"sortOrder"`
}

// DisplayName builds the identity name from optional first and last names,
// falling back to the email address.
func DisplayName(firstname, surname *string, fallback string) string {
	switch {
	case firstname != nil && surname != nil:
		return *firstname + " " + *surname
	case firstname != nil:
		return *firstname
	case surname != nil:
		return *surname
	default:
		return fallback
	}
}

// Contact is a TMail domain contact. A nil name is absent and is left
// untouched by updates; an empty name is present and clears the value.
type Contact struct {
	EmailAddress string  `json:"emailAddress"`
	Firstname    *string `json:"firstname,omitempty"`
	Surname      *string `json:"surname,omitempty"`
}

// ContactNames is the body of a contact update.
type ContactNames struct {
	Firstname *string `json:"firstname,omitempty"`
	Surname   *string `json:"surname,omitempty"`
}

// Names returns the updatable part of the contact.
func (c Contact) Names() ContactNames {
	return ContactNames{Firstname: c.Firstname, Surname: c.Surname}
}

// SplitAddress splits an email into local part and domain. ok is false when
// the address has no '@' or either side is empty.
func SplitAddress(email string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(email, '@')
	if i <= 0 || i == len(email)-1 {
		return "", "", false
	}
	return email[:i], email[i+1:], true
}
