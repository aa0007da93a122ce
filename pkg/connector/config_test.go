// Copyright 2024-2026 Aiku AI

package connector

import (
	"slices"
	"testing"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshalYAML(t *testing.T) {
	t.Parallel()
	input := `
url: http://james.local:8000/
token: secret
timeout: 5s
allow_local_copy_forwards: true
contact_domains: [james.org, linagora.com]
write_attributes:
  identities: [firstname]
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("UnmarshalYAML: %v", err)
	}
	if cfg.URL != "http://james.local:8000/" {
		t.Errorf("URL: got %q", cfg.URL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout: got %v, want 5s", cfg.Timeout)
	}
	if !cfg.AllowLocalCopyForwards {
		t.Error("AllowLocalCopyForwards: got false, want true")
	}
	if !slices.Equal(cfg.ContactDomains, []string{"james.org", "linagora.com"}) {
		t.Errorf("ContactDomains: got %v", cfg.ContactDomains)
	}
	if got := cfg.WriteAttributesFor(KindIdentities); !slices.Equal(got, []string{AttrFirstname}) {
		t.Errorf("WriteAttributesFor(identities): got %v", got)
	}
	if got := cfg.WriteAttributesFor(KindAliases); got != nil {
		t.Errorf("WriteAttributesFor(aliases): got %v, want nil", got)
	}
}

func TestConfigPostProcess(t *testing.T) {
	t.Parallel()
	cfg := &Config{URL: " http://james.local:8000// "}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if cfg.URL != "http://james.local:8000" {
		t.Errorf("URL: got %q", cfg.URL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout: got %v, want %v", cfg.Timeout, DefaultTimeout)
	}
}

func TestConfigPostProcessErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing url", cfg: Config{}},
		{name: "bad scheme", cfg: Config{URL: "ftp://james.local"}},
		{name: "unknown kind", cfg: Config{URL: "http://james.local", WriteAttributes: map[Kind][]string{"mailboxes": {"x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			if err := cfg.PostProcess(); err == nil {
				t.Error("PostProcess should fail")
			}
		})
	}
}

func TestConfigPostProcessDomainEnv(t *testing.T) {
	t.Setenv(DomainListEnv, "james.org,linagora.com")

	cfg := &Config{URL: "http://james.local"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if !slices.Equal(cfg.ContactDomains, []string{"james.org", "linagora.com"}) {
		t.Errorf("ContactDomains from env: got %v", cfg.ContactDomains)
	}

	cfg = &Config{URL: "http://james.local", ContactDomains: []string{"only.org"}}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if !slices.Equal(cfg.ContactDomains, []string{"only.org"}) {
		t.Errorf("config should win over env: got %v", cfg.ContactDomains)
	}
}

func TestUpgradeConfig(t *testing.T) {
	t.Parallel()
	var baseNode yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &baseNode); err != nil {
		t.Fatalf("failed to parse base config: %v", err)
	}

	userCfg := `
url: http://custom:8000
token: abc
allow_local_copy_forwards: true
unknown_key: dropped
`
	var cfgNode yaml.Node
	if err := yaml.Unmarshal([]byte(userCfg), &cfgNode); err != nil {
		t.Fatalf("failed to parse user config: %v", err)
	}

	helper := up.NewHelper(&baseNode, &cfgNode)
	upgradeConfig(helper)

	if val := helper.GetBase("url"); val != "http://custom:8000" {
		t.Errorf("url after upgrade: got %q", val)
	}
	if val := helper.GetBase("timeout"); val != "30s" {
		t.Errorf("timeout should keep the example value: got %q", val)
	}
	if val := helper.GetBase("allow_local_copy_forwards"); val != "true" {
		t.Errorf("allow_local_copy_forwards after upgrade: got %q", val)
	}
	if node := helper.GetBaseNode("unknown_key"); node != nil {
		t.Error("unknown keys should not be copied")
	}
}

func TestExampleConfigParses(t *testing.T) {
	t.Parallel()
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExampleConfig), &cfg); err != nil {
		t.Fatalf("example config: %v", err)
	}
	if len(cfg.ContactDomains) != 0 {
		t.Errorf("example contact_domains should be empty, got %v", cfg.ContactDomains)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("example timeout: got %v", cfg.Timeout)
	}
}
