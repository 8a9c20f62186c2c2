// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package holiday

import "slices"

// Country as returned by /AvailableCountries.
type Country struct {
	CountryCode string `json:"countryCode"`
	Name        string `json:"name"`
}

// PublicHoliday is the raw /PublicHolidays element.
type PublicHoliday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Fixed       bool     `json:"fixed"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
	LaunchYear  *int     `json:"launchYear"`
	Types       []string `json:"types"`
}

// IsNationalPublic reports whether h applies to the whole country and is a
// public (day off) holiday. Everything else is left out of DateInfo results.
func (h PublicHoliday) IsNationalPublic() bool {
	return h.Global && slices.Contains(h.Types, "Public")
}

// DateIndicator tags a date for presentation.
type DateIndicator struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Label string `json:"label"`
}

var (
	PublicHolidayIndicator = DateIndicator{
		ID:    "public-holiday",
		Color: "bg-red-500",
		Label: "Public Holiday",
	}

	DefaultHolidayIndicator = DateIndicator{
		ID:    "pto",
		Color: "bg-gray-500",
		Label: "PTO Indicator",
	}
)

// Indicators is the closed set of known indicators keyed by ID.
var Indicators = map[string]DateIndicator{
	PublicHolidayIndicator.ID:  PublicHolidayIndicator,
	DefaultHolidayIndicator.ID: DefaultHolidayIndicator,
}

// DateInfo is a date and what is known about it.
type DateInfo struct {
	Date       Date            `json:"date"`
	Indicators []DateIndicator `json:"indicators"`
	Tooltip    *string         `json:"tooltip,omitempty"`
}

// HasIndicator reports whether id is attached to d.
func (d DateInfo) HasIndicator(id string) bool {
	return slices.ContainsFunc(d.Indicators, func(i DateIndicator) bool {
		return i.ID == id
	})
}

func newPublicHolidayInfo(h PublicHoliday) (DateInfo, error) {
	date, err := ParseDate(h.Date)
	if err != nil {
		return DateInfo{}, err
	}
	tip := h.LocalName
	return DateInfo{
		Date:       date,
		Indicators: []DateIndicator{PublicHolidayIndicator},
		Tooltip:    &tip,
	}, nil
}
