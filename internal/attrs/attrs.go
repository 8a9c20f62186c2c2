// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

var lengthRegex = regexp.MustCompile(`-?\d+`)

// Attr is one column of output. Key is a gjson path into each result row.
type Attr struct {
	Key string
	// Include is false for attributes that are only there to filter or sort on.
	Include bool
	// OutputKey names the column, and the key in json/yaml output.
	OutputKey string
	// TransformSpec is a string of transform flags. l/u change case, t renders
	// times in the local zone, a number truncates (negative elides the middle).
	TransformSpec string
}

// Transform applies TransformSpec to value. Values other than strings and
// epoch millisecond numbers pass through untouched.
func (a *Attr) Transform(value any) any {
	if strings.ContainsAny(a.TransformSpec, "tT") {
		if s, ok := localTime(value); ok {
			value = s
		}
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	// The last case flag wins so an attr's own spec overrides a global one.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")
	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	if match := lengthRegex.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		result = truncate(result, l)
	}

	return result
}

func truncate(s string, l int) string {
	r := []rune(s)
	abs := int(math.Abs(float64(l)))
	if len(r) <= abs || abs == 0 {
		return s
	}
	if l > 0 {
		return string(r[:l])
	}
	half := abs/2 - 1
	if half < 1 {
		return string(r[:abs])
	}
	return string(r[:half]) + ".." + string(r[len(r)-half:])
}

// localTime renders an RFC3339 string or an epoch millisecond number in the
// zone named by TZ. Strings are only converted when TZ is set; numbers fall
// back to the local zone.
func localTime(value any) (string, bool) {
	loc := time.Local
	tz := os.Getenv("TZ")
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Debugf("unknown TZ: %s", tz)
			return "", false
		}
		loc = l
	}

	var t time.Time
	switch v := value.(type) {
	case string:
		if tz == "" {
			return "", false
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			log.Debugf("not a time: %s", v)
			return "", false
		}
		t = parsed
	case float64:
		t = time.UnixMilli(int64(v))
	case int64:
		t = time.UnixMilli(v)
	case int:
		t = time.UnixMilli(int64(v))
	default:
		return "", false
	}

	return t.In(loc).Format("2006-01-02T15:04:05MST"), true
}

// AttrList is the parsed form of --attrs.
type AttrList []Attr

// String renders the list in --attrs syntax.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses a comma separated list of key[:output[:transform]] specs. A
// leading ! hides the attribute and * carries a transform for every column.
// Naming an attribute that is already present updates it in place.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

specloop:
	for _, spec := range strings.Split(value, ",") {
		fields := strings.Split(spec, ":")

		attr := Attr{Include: true}
		attr.Key = strings.TrimSpace(fields[keyIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("empty attribute in %q", spec)
		}
		if attr.Key == "*" {
			attr.Include = false
		}

		switch {
		case len(fields) == 1:
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		case strings.TrimSpace(fields[outputIdx]) != "":
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		default:
			attr.OutputKey = attr.Key
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec prefixes the * transform onto every attribute.
func (a *AttrList) SetGlobalTransformSpec() {
	spec := ""
	for _, attr := range *a {
		if attr.Key == "*" {
			spec = attr.TransformSpec
			break
		}
	}
	if spec == "" {
		return
	}

	for i := range *a {
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}
}

// Included returns the attributes that produce columns.
func (a AttrList) Included() AttrList {
	out := make(AttrList, 0, len(a))
	for _, attr := range a {
		if attr.Include {
			out = append(out, attr)
		}
	}
	return out
}

// Type satisfies the flag value interface.
func (a *AttrList) Type() string {
	return "list"
}
