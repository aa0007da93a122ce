// Copyright 2024-2026 Aiku AI

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aiku/james-sync/pkg/connector"
	"github.com/aiku/james-sync/pkg/ldapsource"
)

func TestExampleConfigParses(t *testing.T) {
	t.Parallel()
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(ExampleConfig()), &cfg))
	require.NoError(t, cfg.PostProcess())

	assert.Equal(t, "http://localhost:8000", cfg.Connector.URL)
	assert.Equal(t, "ldap://localhost:389", cfg.LDAP.URL)
	assert.Equal(t, ldapsource.DefaultAttributes, cfg.LDAP.Attributes)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, connector.AllKinds, cfg.Sync.SyncKinds())
	assert.False(t, cfg.Sync.OperationsFor(connector.KindUsers).Allows(connector.OperationDelete))
	assert.Equal(t, defaultAdminAddr, cfg.Admin.Addr)

	_, err := cfg.Logging.Compile()
	require.NoError(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
connector:
    url: http://james:8000/
    token: secret
ldap:
    url: ldaps://ldap.james.org
    base_dn: dc=james,dc=org
sync:
    workers: 8
    kinds: [aliases, users]
    operations:
        users:
            delete: true
`

func TestLoadConfigUpgradesMinimalFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, minimalConfig)

	cfg, err := loadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "http://james:8000", cfg.Connector.URL)
	assert.Equal(t, "secret", cfg.Connector.Token)
	assert.Equal(t, connector.DefaultTimeout, cfg.Connector.Timeout)
	assert.Equal(t, "ldaps://ldap.james.org", cfg.LDAP.URL)
	assert.Equal(t, "dc=james,dc=org", cfg.LDAP.BaseDN)
	assert.Equal(t, ldapsource.DefaultFilter, cfg.LDAP.Filter)
	assert.EqualValues(t, 500, cfg.LDAP.PageSize)
	assert.Equal(t, 8, cfg.Sync.Workers)
	assert.Equal(t, []connector.Kind{connector.KindUsers, connector.KindAliases}, cfg.Sync.SyncKinds())
	assert.True(t, cfg.Sync.OperationsFor(connector.KindUsers).Allows(connector.OperationDelete))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, minimalConfig, string(raw), "file is untouched without save")
}

func TestLoadConfigSave(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, minimalConfig)

	_, err := loadConfig(path, true)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "request_timeout")
	assert.Contains(t, string(raw), "ldaps://ldap.james.org")
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.Error(t, err)

	_, err = loadConfig(writeConfig(t, "sync:\n    kinds: [mailboxes]\n"), false)
	require.ErrorIs(t, err, connector.ErrUnknownKind)

	_, err = loadConfig(writeConfig(t, "ldap:\n    url: http://ldap\n"), false)
	require.Error(t, err)
}

func TestCommands(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"james-sync", "example-config"}))
	assert.Equal(t, ExampleConfig(), out.String())

	out.Reset()
	require.NoError(t, app.Run([]string{"james-sync", "version"}))
	assert.Contains(t, out.String(), "james-sync unknown")

	err := app.Run([]string{"james-sync", "sync", "--kind", "mailboxes"})
	require.ErrorIs(t, err, connector.ErrUnknownKind)
}
