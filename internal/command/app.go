// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/config"
	"github.com/staranto/holidayctl/internal/meta"
)

// InitApp builds the root command and the Meta it shares with subcommands.
func InitApp(ctx context.Context, args []string, opts ...meta.Option) (*cli.Command, error) {
	// The arg following the binary is the subcommand and also the namespace
	// for config lookups. It may be a flag such as --help.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Debug("no config file")
	}
	cfg.Namespace = ns
	config.Config.Namespace = ns

	m := meta.New(ctx, args, cfg, opts...)
	return NewApp(m), nil
}

// NewApp builds the command tree around m.
func NewApp(m *meta.Meta) *cli.Command {
	app := &cli.Command{
		Name:  "holidayctl",
		Usage: "public holiday lookup with a local cache",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "holidayctl version info",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:    "no-persist",
				Usage:   "keep the cache in memory for this run",
				Sources: cli.NewValueSourceChain(cli.EnvVar("HOLIDAYCTL_NO_PERSIST")),
			},
		},
		Metadata: map[string]any{
			"meta": m,
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			m.NoPersist = c.Bool("no-persist")
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := m.Close(); err != nil {
				log.WithError(err).Warn("failed to close cache store")
			}
			return nil
		},
	}

	app.Commands = append(app.Commands,
		CountriesCommandBuilder(app, m),
		HolidaysCommandBuilder(app, m),
		CacheCommandBuilder(app, m),
		CompletionCommandBuilder(app, m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sortFlags(cmd)
	}

	return app
}

func sortFlags(cmd *cli.Command) {
	sort.Slice(cmd.Flags, func(i, j int) bool {
		return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
	})
	for _, sub := range cmd.Commands {
		sortFlags(sub)
	}
}
