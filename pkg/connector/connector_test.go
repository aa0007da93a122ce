// Copyright 2024-2026 Aiku AI

package connector

import (
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/james/jamestest"
)

func newTestConnector(t *testing.T, cfg Config) (*Connector, *jamestest.Server) {
	t.Helper()
	srv := jamestest.NewServer()
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL()
	cfg.Token = jamestest.Token
	c, err := New(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func mustService(t *testing.T, c *Connector, kind Kind) WritableService {
	t.Helper()
	svc, err := c.Service(kind)
	if err != nil {
		t.Fatalf("Service(%s): %v", kind, err)
	}
	return svc
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, zerolog.Nop(), nil); err == nil {
		t.Error("New with an empty config: expected an error")
	}
}

func TestConnector_Services(t *testing.T) {
	t.Parallel()
	c, _ := newTestConnector(t, Config{ContactDomains: []string{"james.org"}})

	for _, kind := range c.Kinds() {
		if svc := mustService(t, c, kind); svc == nil {
			t.Errorf("Service(%s): got nil", kind)
		}
	}
	if _, err := c.Service("mailboxes"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Service(mailboxes): got %v, want ErrUnknownKind", err)
	}
}

func TestConnector_WriteAttributesOverride(t *testing.T) {
	t.Parallel()
	c, _ := newTestConnector(t, Config{
		ContactDomains:  []string{"james.org"},
		WriteAttributes: map[Kind][]string{KindIdentities: {AttrFirstname}},
	})
	if got, want := mustService(t, c, KindIdentities).GetWriteDatasetIDs(), []string{AttrFirstname}; !slices.Equal(got, want) {
		t.Errorf("identities: got %v, want %v", got, want)
	}
	if got, want := mustService(t, c, KindContacts).GetWriteDatasetIDs(), []string{AttrFirstname, AttrSurname}; !slices.Equal(got, want) {
		t.Errorf("contacts: got %v, want %v", got, want)
	}
}

func TestConnector_ForwardsLocalCopySetting(t *testing.T) {
	t.Parallel()
	c, srv := newTestConnector(t, Config{ContactDomains: []string{"james.org"}, AllowLocalCopyForwards: true})
	srv.AddUser(bob)

	expectApply(t, mustService(t, c, KindForwards), create(bob, Datasets{AttrForwards: {bob}}), true)
	if got := srv.ForwardsOf(bob); !slices.Equal(got, []string{bob}) {
		t.Errorf("forwards: got %v, want the local copy", got)
	}
}

func TestConnector_ReloadDomains(t *testing.T) {
	t.Parallel()
	c, srv := newTestConnector(t, Config{ContactDomains: []string{"james.org"}})
	svc := mustService(t, c, KindContacts)

	expectApply(t, svc, create("carol@other.org", Datasets{}), false)
	if n := c.DomainCount(); n != 1 {
		t.Errorf("DomainCount: got %d, want 1", n)
	}

	added, removed := c.ReloadDomains([]string{"james.org", "other.org"})
	if added != 1 || removed != 0 {
		t.Errorf("ReloadDomains: got +%d -%d, want +1 -0", added, removed)
	}
	expectApply(t, svc, create("carol@other.org", Datasets{}), true)
	if _, ok := srv.ContactOf("carol@other.org"); !ok {
		t.Error("contact of the reloaded domain was not created")
	}

	c.ReloadDomains(nil)
	if n := c.DomainCount(); n != -1 {
		t.Errorf("DomainCount after clearing: got %d, want -1", n)
	}
}

func TestConnector_ReloadDomainsFromEnv(t *testing.T) {
	c, _ := newTestConnector(t, Config{ContactDomains: []string{"james.org"}})
	t.Setenv(DomainListEnv, "linagora.com, james.org")

	added, removed := c.ReloadDomainsFromEnv()
	if added != 1 || removed != 0 {
		t.Errorf("ReloadDomainsFromEnv: got +%d -%d, want +1 -0", added, removed)
	}
	if got, want := c.Domains.List(), []string{"james.org", "linagora.com"}; !slices.Equal(got, want) {
		t.Errorf("domains: got %v, want %v", got, want)
	}
}
