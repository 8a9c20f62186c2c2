// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/holiday"
	"github.com/staranto/holidayctl/internal/meta"
)

// CountriesCommandAction lists the countries the API supports.
func CountriesCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &ListActionRunner[holiday.Country]{
		CommandName:  "countries",
		DefaultAttrs: []string{"countryCode:code", "name"},
		FetchFn: func(ctx context.Context, cmd *cli.Command, m *meta.Meta) ([]holiday.Country, error) {
			client, err := m.Holidays(ctx)
			if err != nil {
				return nil, err
			}
			return client.AvailableCountries(ctx)
		},
	}
	return runner.Run(ctx, cmd)
}

func CountriesCommandBuilder(cmd *cli.Command, m *meta.Meta) *cli.Command {
	return (&ListCommandBuilder{
		Name:      "countries",
		Usage:     "list supported countries",
		UsageText: `holidayctl countries [options]`,
		Action:    CountriesCommandAction,
		Meta:      m,
	}).Build()
}
