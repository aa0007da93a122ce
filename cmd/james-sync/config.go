// Copyright 2024-2026 Aiku AI

package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	up "go.mau.fi/util/configupgrade"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"

	"github.com/aiku/james-sync/pkg/connector"
	"github.com/aiku/james-sync/pkg/ldapsource"
	"github.com/aiku/james-sync/pkg/syncer"
)

//go:embed base-config.yaml
var baseConfig string

const defaultAdminAddr = "127.0.0.1:8089"

type AdminConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Connector connector.Config  `yaml:"connector"`
	LDAP      ldapsource.Config `yaml:"ldap"`
	Sync      syncer.Config     `yaml:"sync"`
	Admin     AdminConfig       `yaml:"admin"`
	Logging   zeroconfig.Config `yaml:"logging"`
}

func (c *Config) PostProcess() error {
	if err := c.Connector.PostProcess(); err != nil {
		return fmt.Errorf("connector: %w", err)
	}
	if err := c.LDAP.PostProcess(); err != nil {
		return err
	}
	if err := c.Sync.PostProcess(); err != nil {
		return err
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = defaultAdminAddr
	}
	return nil
}

// ExampleConfig assembles the full example configuration from the sections
// of each package.
func ExampleConfig() string {
	var sb strings.Builder
	sb.WriteString("# Mail server connection and per-kind settings.\nconnector:\n")
	sb.WriteString(indent(connector.ExampleConfig))
	sb.WriteString("\n# Directory the accounts are read from.\nldap:\n")
	sb.WriteString(indent(ldapsource.ExampleConfig))
	sb.WriteString("\n")
	sb.WriteString(baseConfig)
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Int, "sync", "workers")
	helper.Copy(up.Bool, "sync", "dry_run")
	helper.Copy(up.Str, "sync", "interval")
	helper.Copy(up.List, "sync", "kinds")
	helper.Copy(up.Map, "sync", "operations")
	helper.Copy(up.Str, "admin", "addr")
	helper.Copy(up.Map, "logging")
}

func configUpgrader() up.BaseUpgrader {
	merged := up.MergeUpgraders(ExampleConfig(),
		&up.ProxyUpgrader{Prefix: []string{"connector"}, Target: connector.Upgrader()},
		&up.ProxyUpgrader{Prefix: []string{"ldap"}, Target: ldapsource.Upgrader()},
		up.SimpleUpgrader(upgradeConfig),
	)
	merged.Blocks = append(merged.Blocks, []string{"ldap"}, []string{"sync"}, []string{"admin"}, []string{"logging"})
	return merged
}

// loadConfig upgrades the file at path onto the example base and parses it.
// With save set the upgraded file is written back.
func loadConfig(path string, save bool) (*Config, error) {
	data, upgraded, err := up.Do(path, save, configUpgrader())
	if err != nil && !upgraded {
		return nil, err
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to save upgraded config:", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
