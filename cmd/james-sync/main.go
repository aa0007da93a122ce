// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command james-sync synchronizes mail accounts from an LDAP directory to an
// Apache James server through its webadmin API: accounts, aliases, forwards,
// address mappings, quotas, identities and domain contacts.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func versionString() string {
	return fmt.Sprintf("james-sync %s (commit %s, built %s)", Tag, Commit, BuildTime)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "james-sync",
		Usage:   "Synchronize LDAP accounts to Apache James",
		Version: Tag,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file",
				Value:   "config.yaml",
				EnvVars: []string{"JAMES_SYNC_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			syncCommand,
			pivotsCommand,
			serveCommand,
			{
				Name:  "example-config",
				Usage: "Print the example configuration",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprint(c.App.Writer, ExampleConfig())
					return err
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, versionString())
					return err
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
