// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/james-sync/pkg/admin"
	"github.com/aiku/james-sync/pkg/connector"
	"github.com/aiku/james-sync/pkg/ldapsource"
	"github.com/aiku/james-sync/pkg/syncer"
)

// app holds what every command builds from the config file.
type app struct {
	path string
	cfg  *Config
	log  zerolog.Logger
	conn *connector.Connector
}

func setup(c *cli.Context) (*app, error) {
	path := c.String("config")
	cfg, err := loadConfig(path, true)
	if err != nil {
		return nil, err
	}
	log, err := cfg.Logging.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	conn, err := connector.New(cfg.Connector, *log, nil)
	if err != nil {
		return nil, err
	}
	return &app{path: path, cfg: cfg, log: *log, conn: conn}, nil
}

// newSyncer dials the directory. The caller closes the returned source.
func (a *app) newSyncer(ctx context.Context) (*syncer.Syncer, *ldapsource.Source, error) {
	src, err := ldapsource.Dial(ctx, a.cfg.LDAP, a.log)
	if err != nil {
		return nil, nil, err
	}
	return syncer.New(a.cfg.Sync, src, a.conn, a.log), src, nil
}

// reloadDomains re-reads the contact allow-list from the config file.
func (a *app) reloadDomains() (added, removed int, err error) {
	cfg, err := loadConfig(a.path, false)
	if err != nil {
		return 0, 0, err
	}
	added, removed = a.conn.ReloadDomains(cfg.Connector.ContactDomains)
	return added, removed, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var syncCommand = &cli.Command{
	Name:  "sync",
	Usage: "Run one sync pass and print the run summaries",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "kind",
			Usage: "kind to synchronize, repeatable (default: sync.kinds or every kind)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "log the planned modifications without applying them",
		},
	},
	Action: func(c *cli.Context) error {
		kinds, err := syncer.ParseKinds(c.StringSlice("kind"))
		if err != nil {
			return err
		}
		a, err := setup(c)
		if err != nil {
			return err
		}
		if c.Bool("dry-run") {
			a.cfg.Sync.DryRun = true
		}
		ctx, cancel := signalContext(c)
		defer cancel()
		s, src, err := a.newSyncer(ctx)
		if err != nil {
			return err
		}
		defer src.Close()

		results, runErr := s.Run(ctx, kinds...)
		if err := writeJSON(c, results); err != nil {
			return err
		}
		return runErr
	},
}

var pivotsCommand = &cli.Command{
	Name:  "pivots",
	Usage: "Print the pivots of every remote entry of a kind as JSON",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "kind", Usage: "kind to list", Required: true},
	},
	Action: func(c *cli.Context) error {
		kind, err := connector.ParseKind(c.String("kind"))
		if err != nil {
			return err
		}
		a, err := setup(c)
		if err != nil {
			return err
		}
		svc, err := a.conn.Service(kind)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(c)
		defer cancel()
		pivots, err := svc.GetListPivots(ctx)
		if err != nil {
			return err
		}
		return writeJSON(c, pivots)
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Serve the admin API and sync periodically",
	Action: func(c *cli.Context) error {
		a, err := setup(c)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(c)
		defer cancel()
		s, src, err := a.newSyncer(ctx)
		if err != nil {
			return err
		}
		defer src.Close()

		srv := admin.New(a.conn, s, a.reloadDomains, a.log)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, a.cfg.Admin.Addr)
		})
		g.Go(func() error {
			s.Loop(gctx)
			return nil
		})
		g.Go(func() error {
			return admin.WatchConfig(gctx, a.path, func() {
				if _, _, err := a.reloadDomains(); err != nil {
					a.log.Error().Err(err).Msg("Failed to reload contact domains")
				}
			}, a.log)
		})
		a.log.Info().Str("version", versionString()).Msg("james-sync started")
		return g.Wait()
	},
}
