// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/holidayctl/internal/attrs"
)

// filterRegex splits key, operator and target. Operators are one of
// = ^ ~ < > @ or /, optionally prefixed with '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// DelimEnv overrides the "," between filter expressions.
const DelimEnv = "HOLIDAYCTL_FILTER_DELIM"

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

func (f Filter) String() string {
	neg := ""
	if f.Negate {
		neg = "!"
	}
	return f.Key + neg + f.Operand + f.Target
}

// Parse splits spec into filters. A malformed expression is an error.
func Parse(spec string) ([]Filter, error) {
	if spec == "" {
		return nil, nil
	}

	delim := ","
	if d, ok := os.LookupEnv(DelimEnv); ok && d != "" {
		delim = d
	}

	var filters []Filter
	for _, expr := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(expr)
		if parts == nil || parts[1] == "" {
			return nil, fmt.Errorf("invalid filter: %q", expr)
		}

		op := parts[2]
		negate := strings.HasPrefix(op, "!")

		f := Filter{
			Key:     strings.TrimSpace(parts[1]),
			Negate:  negate,
			Operand: strings.TrimPrefix(op, "!"),
			Target:  parts[3],
		}
		if f.Operand == "/" {
			if _, err := regexp.Compile(f.Target); err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
			}
		}
		filters = append(filters, f)
	}

	return filters, nil
}

// Apply keeps the rows of candidates that pass every filter and projects each
// onto al, keyed by OutputKey. Filter keys name either an attribute's
// OutputKey or a path into the row.
func Apply(candidates gjson.Result, al attrs.AttrList, filters []Filter) []map[string]any {
	results := make([]map[string]any, 0)

	for _, candidate := range candidates.Array() {
		if !matches(candidate, al, filters) {
			continue
		}

		row := make(map[string]any, len(al))
		for _, attr := range al {
			if attr.Key == "*" {
				continue
			}
			row[attr.OutputKey] = candidate.Get(attr.Key).Value()
		}
		results = append(results, row)
	}

	return results
}

func matches(candidate gjson.Result, al attrs.AttrList, filters []Filter) bool {
	for _, filter := range filters {
		path := filter.Key
		for _, attr := range al {
			if attr.OutputKey == filter.Key {
				path = attr.Key
				break
			}
		}

		field := candidate.Get(path)
		if !field.Exists() {
			log.Debugf("filter key not found: %s", filter.Key)
			return false
		}

		if !check(field.Value(), filter) {
			return false
		}
	}
	return true
}

func check(value any, filter Filter) bool {
	switch v := value.(type) {
	case nil:
		return filter.Negate
	case string:
		return checkString(v, filter)
	case bool:
		return checkString(strconv.FormatBool(v), filter)
	case float64:
		if filter.Operand == "@" || filter.Operand == "/" || filter.Operand == "^" || filter.Operand == "~" {
			return checkString(strconv.FormatFloat(v, 'f', -1, 64), filter)
		}
		return checkNumeric(v, filter)
	case []any, map[string]any:
		return checkContains(v, filter)
	default:
		log.Debugf("unsupported filter value type %T", value)
		return false
	}
}

// checkContains handles '@' against arrays and objects.
func checkContains(value any, filter Filter) bool {
	if filter.Operand != "@" {
		log.Errorf("operand %s does not apply to %T", filter.Operand, value)
		return false
	}

	switch val := value.(type) {
	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == filter.Target {
				return !filter.Negate
			}
		}
		return filter.Negate
	case map[string]any:
		_, found := val[filter.Target]
		return found != filter.Negate
	}
	return false
}

func checkNumeric(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Errorf("invalid numeric target: %s", filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) != filter.Negate
	case ">":
		return (value > tgt) != filter.Negate
	case "<":
		return (value < tgt) != filter.Negate
	default:
		log.Errorf("unsupported numeric operand: %s", filter.Operand)
		return false
	}
}

func checkString(value string, filter Filter) bool {
	var ok bool
	switch filter.Operand {
	case "=":
		ok = value == filter.Target
	case "~":
		ok = strings.EqualFold(value, filter.Target)
	case "^":
		ok = strings.HasPrefix(value, filter.Target)
	case ">":
		ok = value > filter.Target
	case "<":
		ok = value < filter.Target
	case "@":
		ok = strings.Contains(value, filter.Target)
	case "/":
		re, err := regexp.Compile(filter.Target)
		if err != nil {
			log.Errorf("invalid regex: %s", filter.Target)
			return false
		}
		ok = re.MatchString(value)
	default:
		log.Errorf("unsupported filtering operand: %s", filter.Operand)
		return false
	}
	return ok != filter.Negate
}
