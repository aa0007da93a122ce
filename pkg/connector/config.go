// Copyright 2024-2026 Aiku AI

package connector

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// DomainListEnv is read when the config does not set contact_domains.
const DomainListEnv = "DOMAIN_LIST_TO_SYNCHRONIZE"

const DefaultTimeout = 30 * time.Second

// Config holds the webadmin connection and the per-kind connector settings.
type Config struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`

	// AllowLocalCopyForwards lets a user forward mail to its own address,
	// which keeps a local copy. Such forwards are skipped by default.
	AllowLocalCopyForwards bool `yaml:"allow_local_copy_forwards"`
	// ContactDomains restricts domain contact synchronization. An empty list
	// means every domain, unless DOMAIN_LIST_TO_SYNCHRONIZE is set.
	ContactDomains []string `yaml:"contact_domains"`
	// WriteAttributes overrides the attributes a kind writes.
	WriteAttributes map[Kind][]string `yaml:"write_attributes"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

func (c *Config) PostProcess() error {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.URL == "" {
		return errors.New("url is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("url %q must start with http:// or https://", c.URL)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if len(c.ContactDomains) == 0 {
		c.ContactDomains = ParseDomainList(os.Getenv(DomainListEnv))
	}
	for kind := range c.WriteAttributes {
		if _, err := ParseKind(string(kind)); err != nil {
			return fmt.Errorf("write_attributes: %w", err)
		}
	}
	return nil
}

// WriteAttributesFor returns the configured write attributes of a kind, or
// nil to use the kind's defaults.
func (c *Config) WriteAttributesFor(kind Kind) []string {
	return c.WriteAttributes[kind]
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "url")
	helper.Copy(up.Str, "token")
	helper.Copy(up.Str, "timeout")
	helper.Copy(up.Bool, "allow_local_copy_forwards")
	helper.Copy(up.List, "contact_domains")
	helper.Copy(up.Map, "write_attributes")
}

// Upgrader returns the upgrader of the connector section, based on the
// embedded example config.
func Upgrader() up.Upgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks:         nil,
		Base:           ExampleConfig,
	}
}
