// Copyright 2024-2026 Aiku AI

package syncer

import (
	"fmt"
	"time"

	"go.mau.fi/util/ptr"
	"gopkg.in/yaml.v3"

	"github.com/aiku/james-sync/pkg/connector"
)

const (
	DefaultWorkers  = 4
	DefaultInterval = 15 * time.Minute
)

// Operations switches the modifications a kind may issue. A nil switch uses
// the kind's default.
type Operations struct {
	Create *bool `yaml:"create"`
	Update *bool `yaml:"update"`
	Delete *bool `yaml:"delete"`
}

// DefaultOperations returns the switches of a kind when none are configured.
// Accounts are never deleted unless enabled explicitly.
func DefaultOperations(kind connector.Kind) Operations {
	return Operations{
		Create: ptr.Ptr(true),
		Update: ptr.Ptr(true),
		Delete: ptr.Ptr(kind != connector.KindUsers),
	}
}

// Allows reports whether op is enabled.
func (o Operations) Allows(op connector.Operation) bool {
	var enabled *bool
	switch op {
	case connector.OperationCreate:
		enabled = o.Create
	case connector.OperationUpdate:
		enabled = o.Update
	case connector.OperationDelete:
		enabled = o.Delete
	}
	return enabled != nil && *enabled
}

func (o Operations) withDefaults(def Operations) Operations {
	if o.Create == nil {
		o.Create = def.Create
	}
	if o.Update == nil {
		o.Update = def.Update
	}
	if o.Delete == nil {
		o.Delete = def.Delete
	}
	return o
}

type Config struct {
	Workers    int                   `yaml:"workers"`
	DryRun     bool                  `yaml:"dry_run"`
	Interval   time.Duration         `yaml:"interval"`
	Kinds      []string              `yaml:"kinds"`
	Operations map[string]Operations `yaml:"operations"`

	parsedKinds []connector.Kind
	parsedOps   map[connector.Kind]Operations
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

func (c *Config) PostProcess() error {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	kinds, err := ParseKinds(c.Kinds)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	c.parsedKinds = kinds
	c.parsedOps = make(map[connector.Kind]Operations, len(connector.AllKinds))
	for _, kind := range connector.AllKinds {
		c.parsedOps[kind] = DefaultOperations(kind)
	}
	for name, ops := range c.Operations {
		kind, err := connector.ParseKind(name)
		if err != nil {
			return fmt.Errorf("sync: operations: %w", err)
		}
		c.parsedOps[kind] = ops.withDefaults(DefaultOperations(kind))
	}
	return nil
}

// OperationsFor returns the resolved switches of a kind.
func (c *Config) OperationsFor(kind connector.Kind) Operations {
	if ops, ok := c.parsedOps[kind]; ok {
		return ops
	}
	return DefaultOperations(kind)
}

// SyncKinds returns the configured kinds in sync order, or every kind when
// none is configured.
func (c *Config) SyncKinds() []connector.Kind {
	if len(c.parsedKinds) == 0 {
		return connector.AllKinds
	}
	return c.parsedKinds
}

// ParseKinds validates kind names and returns them in sync order without
// duplicates. An empty input gives a nil slice.
func ParseKinds(names []string) ([]connector.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	wanted := make(map[connector.Kind]bool, len(names))
	for _, name := range names {
		kind, err := connector.ParseKind(name)
		if err != nil {
			return nil, err
		}
		wanted[kind] = true
	}
	kinds := make([]connector.Kind, 0, len(wanted))
	for _, kind := range connector.AllKinds {
		if wanted[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}
