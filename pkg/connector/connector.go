// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/james"
)

// Connector owns the webadmin client and one WritableService per kind.
type Connector struct {
	Config  Config
	Log     zerolog.Logger
	Client  *james.Client
	Domains *DomainFilter

	services map[Kind]WritableService
}

// New post-processes cfg and builds every service. beans may be nil to use
// SimpleBean.
func New(cfg Config, log zerolog.Logger, beans BeanFactory) (*Connector, error) {
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("failed to post-process config: %w", err)
	}
	client := james.NewClient(cfg.URL, cfg.Token, &http.Client{Timeout: cfg.Timeout}, log)
	c := &Connector{
		Config:  cfg,
		Log:     log,
		Client:  client,
		Domains: NewDomainFilter(cfg.ContactDomains),
	}
	opts := func(kind Kind) Options {
		return Options{Log: log, BeanFactory: beans, WriteAttributes: cfg.WriteAttributesFor(kind)}
	}
	c.services = map[Kind]WritableService{
		KindUsers:           NewUserService(client, opts(KindUsers)),
		KindAliases:         NewAliasService(client, opts(KindAliases)),
		KindForwards:        NewForwardService(client, cfg.AllowLocalCopyForwards, opts(KindForwards)),
		KindAddressMappings: NewAddressMappingService(client, opts(KindAddressMappings)),
		KindQuota:           NewQuotaService(client, opts(KindQuota)),
		KindIdentities:      NewIdentityService(client, opts(KindIdentities)),
		KindContacts:        NewContactService(client, c.Domains, opts(KindContacts)),
	}
	log.Info().
		Str("url", cfg.URL).
		Bool("allow_local_copy_forwards", cfg.AllowLocalCopyForwards).
		Strs("contact_domains", c.Domains.List()).
		Msg("Connector initialized")
	return c, nil
}

// Service returns the service of a kind.
func (c *Connector) Service(kind Kind) (WritableService, error) {
	svc, ok := c.services[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return svc, nil
}

// Kinds returns every kind in sync order.
func (c *Connector) Kinds() []Kind {
	return AllKinds
}

// ReloadDomains replaces the contact allow-list. A nil list allows every
// domain. Returns the number of added and removed domains.
func (c *Connector) ReloadDomains(domains []string) (added, removed int) {
	added, removed = c.Domains.Replace(domains)
	c.Log.Info().
		Int("added", added).
		Int("removed", removed).
		Strs("domains", c.Domains.List()).
		Msg("Reloaded contact domains")
	return added, removed
}

// ReloadDomainsFromEnv re-reads DOMAIN_LIST_TO_SYNCHRONIZE. An unset or
// empty variable allows every domain.
func (c *Connector) ReloadDomainsFromEnv() (added, removed int) {
	return c.ReloadDomains(ParseDomainList(os.Getenv(DomainListEnv)))
}

// DomainCount returns the size of the allow-list, or -1 when every domain
// is allowed.
func (c *Connector) DomainCount() int {
	list := c.Domains.List()
	if list == nil {
		return -1
	}
	return len(list)
}
