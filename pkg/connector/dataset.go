// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"maps"
	"slices"

	"go.mau.fi/util/ptr"
)

// Attribute names shared by the source and the destination datasets.
const (
	AttrEmail           = "email"
	AttrSources         = "sources"
	AttrForwards        = "forwards"
	AttrAddressMappings = "addressMappings"
	AttrMailQuotaSize   = "mailQuotaSize"
	AttrFirstname       = "firstname"
	AttrSurname         = "surname"
)

// Datasets is a multi-valued attribute bag. A key mapped to an empty slice is
// present; a missing key is absent. The distinction matters on updates.
type Datasets map[string][]string

// Get returns the values of name and whether the attribute is present.
func (d Datasets) Get(name string) ([]string, bool) {
	v, ok := d[name]
	return v, ok
}

// First returns the first value of name. ok is false when the attribute is
// absent or has no values.
func (d Datasets) First(name string) (string, bool) {
	v := d[name]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Names returns the attribute names in sorted order.
func (d Datasets) Names() []string {
	return slices.Sorted(maps.Keys(d))
}

func (d Datasets) Clone() Datasets {
	out := make(Datasets, len(d))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	return out
}

// Operation is the change the driver asks a service to apply.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationCreate
	OperationUpdate
	OperationDelete
	OperationChangeID
)

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	case OperationChangeID:
		return "change_id"
	default:
		return "unknown"
	}
}

// Modifications is one change request for a single entry. Attributes holds
// the modified attributes by name; for creates it carries every source
// attribute.
type Modifications struct {
	Operation      Operation
	MainIdentifier string
	Attributes     Datasets
}

// Bean is the destination view of one entry, as returned by GetBean.
type Bean interface {
	MainIdentifier() string
	Datasets() Datasets
}

// BeanFactory builds the bean returned by GetBean. Deployments that need a
// richer bean type inject their own factory.
type BeanFactory func(mainIdentifier string, datasets Datasets) Bean

// SimpleBean is the default Bean implementation.
type SimpleBean struct {
	ID    string
	Attrs Datasets
}

var _ Bean = (*SimpleBean)(nil)

func (b *SimpleBean) MainIdentifier() string { return b.ID }
func (b *SimpleBean) Datasets() Datasets     { return b.Attrs }

// NewSimpleBean is the default BeanFactory.
func NewSimpleBean(mainIdentifier string, datasets Datasets) Bean {
	return &SimpleBean{ID: mainIdentifier, Attrs: datasets}
}

// valuesOf extracts the non-empty values of a list attribute converted with
// conv. present is false when the attribute is missing altogether.
func valuesOf[T any](d Datasets, name string, conv func(string) T) (items []T, present bool) {
	raw, present := d.Get(name)
	if !present {
		return nil, false
	}
	items = make([]T, 0, len(raw))
	for _, v := range raw {
		if v == "" {
			continue
		}
		items = append(items, conv(v))
	}
	return items, true
}

// optionalFirst returns a pointer to the first value of name, or nil when the
// attribute is absent or empty. An empty string value is kept.
func optionalFirst(d Datasets, name string) *string {
	v, ok := d.First(name)
	if !ok {
		return nil
	}
	return ptr.Ptr(v)
}

// presentName returns the first value of name as a pointer. A present
// attribute without values gives a pointer to "", so that the remote value is
// cleared; only a missing attribute gives nil.
func presentName(d Datasets, name string) *string {
	values, present := d.Get(name)
	if !present {
		return nil
	}
	for _, v := range values {
		if v != "" {
			return ptr.Ptr(v)
		}
	}
	return ptr.Ptr("")
}
