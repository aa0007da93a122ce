// Copyright 2024-2026 Aiku AI

package ldapsource

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/aiku/james-sync/pkg/connector"
)

//go:embed example-config.yaml
var ExampleConfig string

const (
	DefaultFilter         = "(objectClass=inetOrgPerson)"
	DefaultPageSize       = 500
	DefaultDialRetries    = 5
	DefaultRequestTimeout = time.Minute
)

// DefaultAttributes maps every dataset to the attribute of a usual mail
// directory schema.
var DefaultAttributes = map[string]string{
	connector.AttrEmail:           "mail",
	connector.AttrSources:         "mailAlias",
	connector.AttrForwards:        "mailForwardingAddress",
	connector.AttrAddressMappings: "mailAlternateAddress",
	connector.AttrMailQuotaSize:   "mailQuotaSize",
	connector.AttrFirstname:       "givenName",
	connector.AttrSurname:         "sn",
}

type Config struct {
	URL            string            `yaml:"url"`
	BindDN         string            `yaml:"bind_dn"`
	BindPassword   string            `yaml:"bind_password"`
	BaseDN         string            `yaml:"base_dn"`
	Filter         string            `yaml:"filter"`
	StartTLS       bool              `yaml:"start_tls"`
	TLSSkipVerify  bool              `yaml:"tls_skip_verify"`
	DialRetries    uint              `yaml:"dial_retries"`
	PageSize       uint32            `yaml:"page_size"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	Attributes     map[string]string `yaml:"attributes"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

func (c *Config) PostProcess() error {
	if c.URL == "" {
		return errors.New("ldap: url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("ldap: invalid url: %w", err)
	}
	switch u.Scheme {
	case "ldap", "ldaps", "ldapi":
	default:
		return fmt.Errorf("ldap: unsupported url scheme %q", u.Scheme)
	}
	if c.StartTLS && u.Scheme == "ldaps" {
		return errors.New("ldap: start_tls cannot be used with ldaps://")
	}
	if c.BaseDN == "" {
		return errors.New("ldap: base_dn is required")
	}
	if c.Filter == "" {
		c.Filter = DefaultFilter
	}
	if c.DialRetries == 0 {
		c.DialRetries = DefaultDialRetries
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if len(c.Attributes) == 0 {
		c.Attributes = make(map[string]string, len(DefaultAttributes))
		for k, v := range DefaultAttributes {
			c.Attributes[k] = v
		}
	}
	for dataset, attr := range c.Attributes {
		if strings.TrimSpace(attr) == "" {
			delete(c.Attributes, dataset)
		}
	}
	if c.Attributes[connector.AttrEmail] == "" {
		return fmt.Errorf("ldap: attributes.%s is required", connector.AttrEmail)
	}
	return nil
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "url")
	helper.Copy(up.Str, "bind_dn")
	helper.Copy(up.Str, "bind_password")
	helper.Copy(up.Str, "base_dn")
	helper.Copy(up.Str, "filter")
	helper.Copy(up.Bool, "start_tls")
	helper.Copy(up.Bool, "tls_skip_verify")
	helper.Copy(up.Int, "dial_retries")
	helper.Copy(up.Int, "page_size")
	helper.Copy(up.Str, "request_timeout")
	helper.Copy(up.Map, "attributes")
}

func Upgrader() up.Upgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Base:           ExampleConfig,
	}
}
