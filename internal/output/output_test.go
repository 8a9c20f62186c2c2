// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/staranto/holidayctl/internal/attrs"
)

func TestSortDataset(t *testing.T) {
	testData := []map[string]any{
		{"name": "Christmas Day", "year": 2025.0, "weekday": "Thursday"},
		{"name": "new year's day", "year": 2024.0, "weekday": "Monday"},
		{"name": "Independence Day", "year": 2024.0, "weekday": "Thursday"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{
			name:      "ascending by name",
			spec:      "name",
			wantOrder: []string{"Christmas Day", "Independence Day", "new year's day"},
		},
		{
			name:      "descending by name",
			spec:      "-name",
			wantOrder: []string{"new year's day", "Independence Day", "Christmas Day"},
		},
		{
			name:      "case sensitive",
			spec:      "!name",
			wantOrder: []string{"Christmas Day", "Independence Day", "new year's day"},
		},
		{
			name:      "case sensitive descending",
			spec:      "-!name",
			wantOrder: []string{"new year's day", "Independence Day", "Christmas Day"},
		},
		{
			name:      "numeric then name",
			spec:      "year,name",
			wantOrder: []string{"Independence Day", "new year's day", "Christmas Day"},
		},
		{
			name:      "stable on ties",
			spec:      "year",
			wantOrder: []string{"new year's day", "Independence Day", "Christmas Day"},
		},
		{
			name:      "missing key sorts first",
			spec:      "nope,-year",
			wantOrder: []string{"Christmas Day", "new year's day", "Independence Day"},
		},
		{
			name:      "empty spec",
			spec:      "",
			wantOrder: []string{"Christmas Day", "new year's day", "Independence Day"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]any, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, expectedName := range tt.wantOrder {
				assert.Equal(t, expectedName, data[i]["name"], "at index %d", i)
			}
		})
	}
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "int64", value: int64(1735689600000), want: "1735689600000"},
		{name: "whole float", value: 2024.0, want: "2024"},
		{name: "fractional float", value: 42.5, want: "42.5"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value with custom empty", value: 0, emptyVal: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

const rows = `[
  {"date":"2024-12-25","weekday":"Wednesday","name":"Christmas Day","year":2024},
  {"date":"2024-01-01","weekday":"Monday","name":"New Year's Day","year":2024},
  {"date":"2025-01-01","weekday":"Wednesday","name":"New Year's Day","year":2025}
]`

func testAttrs(t *testing.T, spec string) attrs.AttrList {
	t.Helper()
	var al attrs.AttrList
	require.NoError(t, al.Set(spec))
	al.SetGlobalTransformSpec()
	return al
}

func TestSliceDiceSpit_JSON(t *testing.T) {
	var buf bytes.Buffer
	al := testAttrs(t, "date,name,!year")

	err := SliceDiceSpit([]byte(rows), al, Options{Format: FormatJSON, Filter: "year=2024", Sort: "date"}, &buf)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []map[string]any{
		{"date": "2024-01-01", "name": "New Year's Day"},
		{"date": "2024-12-25", "name": "Christmas Day"},
	}, got)
}

func TestSliceDiceSpit_YAML(t *testing.T) {
	var buf bytes.Buffer
	al := testAttrs(t, "date,name:holiday:u")

	err := SliceDiceSpit([]byte(rows), al, Options{Format: FormatYAML, Sort: "-date"}, &buf)
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "2025-01-01", got[0]["date"])
	assert.Equal(t, "NEW YEAR'S DAY", got[0]["holiday"])
}

func TestSliceDiceSpit_Text(t *testing.T) {
	var buf bytes.Buffer
	al := testAttrs(t, "date,weekday,name")

	err := SliceDiceSpit([]byte(rows), al, Options{Format: FormatText, Titles: true, Color: true, Filter: "weekday=Wednesday"}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "date")
	assert.Contains(t, out, "Christmas Day")
	assert.Contains(t, out, "2025-01-01")
	assert.NotContains(t, out, "Monday")
	assert.NotContains(t, out, "\x1b[", "no color when not a terminal")
	assert.Less(t, strings.Index(out, "weekday"), strings.Index(out, "Christmas Day"), "titles come first")
}

func TestSliceDiceSpit_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := SliceDiceSpit([]byte(`[]`), testAttrs(t, "date"), Options{Format: FormatText, Titles: true}, &buf)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestSliceDiceSpit_Raw(t *testing.T) {
	var buf bytes.Buffer
	err := SliceDiceSpit([]byte(rows), testAttrs(t, "date"), Options{Format: FormatRaw, Filter: "this is ignored"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, rows, buf.String())
}

func TestSliceDiceSpit_Errors(t *testing.T) {
	var buf bytes.Buffer

	err := SliceDiceSpit([]byte(rows), testAttrs(t, "date"), Options{Format: FormatJSON, Filter: "nonsense"}, &buf)
	assert.Error(t, err)

	err = SliceDiceSpit([]byte(`[{"date":`), testAttrs(t, "date"), Options{Format: FormatJSON}, &buf)
	assert.Error(t, err)
}
