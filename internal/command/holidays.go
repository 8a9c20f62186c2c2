// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/holiday"
	"github.com/staranto/holidayctl/internal/meta"
)

// HolidayRow is one output row of the holidays command.
type HolidayRow struct {
	Country    string   `json:"country"`
	Date       string   `json:"date"`
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	Day        int      `json:"day"`
	Weekday    string   `json:"weekday"`
	Name       string   `json:"name"`
	Indicators []string `json:"indicators"`
}

func newHolidayRow(cc string, info holiday.DateInfo) HolidayRow {
	row := HolidayRow{
		Country: cc,
		Date:    info.Date.String(),
		Year:    info.Date.Year,
		Month:   info.Date.Month,
		Day:     info.Date.Day,
		Weekday: info.Date.Weekday().String(),
	}
	if info.Tooltip != nil {
		row.Name = *info.Tooltip
	}
	for _, i := range info.Indicators {
		row.Indicators = append(row.Indicators, i.ID)
	}
	return row
}

// maxYears caps how many years one invocation may ask for.
const maxYears = 100

// parseHolidayArgs splits CC [YEAR...]. YEAR may also be a range such as
// 2024-2026. No years means the current one.
func parseHolidayArgs(args []string, now time.Time) (string, []int, error) {
	if len(args) == 0 {
		return "", nil, errors.New("a country code is required")
	}

	cc := strings.ToUpper(args[0])
	if err := CountryCodeValidator(cc); err != nil {
		return "", nil, err
	}

	var years []int
	for _, a := range args[1:] {
		from, to, isRange := strings.Cut(a, "-")
		if !isRange {
			to = from
		}
		lo, err := holiday.ParseYear(from)
		if err != nil {
			return "", nil, err
		}
		hi, err := holiday.ParseYear(to)
		if err != nil {
			return "", nil, err
		}
		if hi < lo {
			return "", nil, fmt.Errorf("invalid year range %s", a)
		}
		if len(years)+hi-lo+1 > maxYears {
			return "", nil, fmt.Errorf("too many years, at most %d per request", maxYears)
		}
		for y := lo; y <= hi; y++ {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		years = []int{now.Year()}
	}

	return cc, years, nil
}

// HolidaysCommandAction lists national public holidays for a country.
func HolidaysCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &ListActionRunner[HolidayRow]{
		CommandName:  "holidays",
		DefaultAttrs: []string{"date", "weekday", "name"},
		FetchFn: func(ctx context.Context, cmd *cli.Command, m *meta.Meta) ([]HolidayRow, error) {
			cc, years, err := parseHolidayArgs(cmd.Args().Slice(), time.Now())
			if err != nil {
				return nil, err
			}
			log.Debugf("holidays for %s in %v", cc, years)

			client, err := m.Holidays(ctx)
			if err != nil {
				return nil, err
			}

			var infos []holiday.DateInfo
			if cmd.Bool("strict") {
				infos, err = client.FetchPublicHolidays(ctx, cc, years)
				if err != nil {
					return nil, err
				}
			} else {
				infos = client.PublicHolidays(ctx, cc, years)
			}

			rows := make([]HolidayRow, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, newHolidayRow(cc, info))
			}
			return rows, nil
		},
	}
	return runner.Run(ctx, cmd)
}

func HolidaysCommandBuilder(cmd *cli.Command, m *meta.Meta) *cli.Command {
	return (&ListCommandBuilder{
		Name:      "holidays",
		Usage:     "list public holidays",
		UsageText: `holidayctl holidays CC [YEAR|YEAR-YEAR...] [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail when any year cannot be fetched",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("HOLIDAYCTL_STRICT"),
				),
			},
		},
		Action: HolidaysCommandAction,
		Meta:   m,
	}).Build()
}
