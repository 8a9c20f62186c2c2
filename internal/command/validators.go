// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/staranto/holidayctl/internal/output"
)

var countryCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'. urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if s, ok := value.(string); ok && strings.HasPrefix(s, "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if s, ok := value.(string); ok && slices.Contains(output.Formats, s) {
		return nil
	}
	return fmt.Errorf("must be one of %v", output.Formats)
}

// CountryCodeValidator accepts ISO 3166-1 alpha-2 shaped codes.
func CountryCodeValidator(value any) error {
	if s, ok := value.(string); ok && countryCodeRegex.MatchString(s) {
		return nil
	}
	return fmt.Errorf("%v is not a two letter country code", value)
}

// YearValidator accepts 1 through 9999. Zero passes so optional flags can
// default to it.
func YearValidator(value any) error {
	y, ok := value.(int)
	if !ok {
		return fmt.Errorf("%v is not a year", value)
	}
	if y < 0 || y > 9999 {
		return fmt.Errorf("%d is not a year", y)
	}
	return nil
}
