// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/holiday"
	"github.com/staranto/holidayctl/internal/meta"
)

// CacheRow describes one persistent cache entry.
type CacheRow struct {
	Key       string `json:"key"`
	Size      string `json:"size"`
	Bytes     int    `json:"bytes"`
	Written   int64  `json:"written"`
	ExpiresAt *int64 `json:"expiresAt"`
	Age       string `json:"age"`
	Expires   string `json:"expires"`
	Expired   bool   `json:"expired"`
}

func cacheRows(ctx context.Context, m *meta.Meta, now time.Time) ([]CacheRow, error) {
	persistent, err := m.Persistent(ctx)
	if err != nil {
		return nil, err
	}

	entries := persistent.Entries()
	rows := make([]CacheRow, 0, len(entries))
	for key, e := range entries {
		row := CacheRow{
			Key:       key,
			Size:      humanize.Bytes(uint64(len(e.Data))),
			Bytes:     len(e.Data),
			Written:   e.Timestamp,
			ExpiresAt: e.ExpiresAt,
			Age:       humanize.RelTime(e.WrittenAt(), now, "ago", "from now"),
			Expires:   "never",
			Expired:   e.Expired(now),
		}
		if at, ok := e.ExpiryTime(); ok {
			row.Expires = humanize.RelTime(at, now, "ago", "from now")
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}

// CacheLsCommandAction lists what the persistent cache holds. Listing does
// not expire anything.
func CacheLsCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &ListActionRunner[CacheRow]{
		CommandName:  "cache",
		DefaultAttrs: []string{"key", "size", "age", "expires"},
		FetchFn: func(ctx context.Context, cmd *cli.Command, m *meta.Meta) ([]CacheRow, error) {
			return cacheRows(ctx, m, time.Now())
		},
	}
	return runner.Run(ctx, cmd)
}

// CacheClearCommandAction drops entries from the persistent cache.
func CacheClearCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	if m == nil {
		return errors.New("cache clear: command is not wired to a session")
	}

	client, err := m.Holidays(ctx)
	if err != nil {
		return err
	}
	persistent, err := m.Persistent(ctx)
	if err != nil {
		return err
	}

	country := strings.ToUpper(cmd.String("country"))
	year := cmd.Int("year")
	pattern := cmd.String("pattern")

	selectors := 0
	for _, set := range []bool{cmd.Bool("all"), country != "", pattern != "", cmd.Bool("countries")} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		return errors.New("use only one of --all, --country, --pattern or --countries")
	}

	var cleared int
	switch {
	case cmd.Bool("all"):
		cleared = persistent.Len()
		client.ClearAllCaches(ctx)
	case country != "":
		cleared = client.ClearHolidayCache(ctx, country, year)
	case year != 0:
		return errors.New("--year requires --country")
	case pattern != "":
		cleared, err = persistent.ClearMatching(ctx, pattern)
		if err != nil {
			return err
		}
		_, _ = m.Session().ClearMatching(ctx, pattern)
	case cmd.Bool("countries"):
		m.Session().Delete(ctx, holiday.CountriesKey)
		if persistent.Delete(ctx, holiday.CountriesKey) {
			cleared = 1
		}
	default:
		return errors.New("nothing to clear: use --all, --country, --pattern or --countries")
	}

	_, err = fmt.Fprintf(writer(cmd), "cleared %d %s from %s\n", cleared, plural(cleared, "entry", "entries"), m.Store())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func CacheCommandBuilder(cmd *cli.Command, m *meta.Meta) *cli.Command {
	ls := (&ListCommandBuilder{
		Name:      "ls",
		Namespace: "cache",
		Usage:     "list persistent cache entries",
		UsageText: `holidayctl cache ls [options]`,
		Action:    CacheLsCommandAction,
		Meta:      m,
	}).Build()

	clearCmd := &cli.Command{
		Name:      "clear",
		Usage:     "remove persistent cache entries",
		UsageText: `holidayctl cache clear (--all | --country CC [--year YEAR] | --pattern REGEX | --countries)`,
		Metadata: map[string]any{
			"meta": m,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "clear everything and remove the stored cache",
			},
			&cli.StringFlag{
				Name:  "country",
				Usage: "clear holidays of one country",
				Validator: func(value string) error {
					return FlagValidators(strings.ToUpper(value), JammedFlagValidator, CountryCodeValidator)
				},
			},
			&cli.IntFlag{
				Name:  "year",
				Usage: "with --country, clear a single year",
				Validator: func(value int) error {
					return FlagValidators(value, YearValidator)
				},
			},
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "clear keys matching a regular expression",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.BoolFlag{
				Name:  "countries",
				Usage: "clear the cached country list",
			},
		},
		Action: CacheClearCommandAction,
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "inspect and clear the local cache",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{ls, clearCmd},
	}
}
