// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/holidayctl/internal/attrs"
	"github.com/staranto/holidayctl/internal/config"
	"github.com/staranto/holidayctl/internal/filters"
)

// Formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

var Formats = []string{FormatText, FormatJSON, FormatRaw, FormatYAML}

// Options are the presentation flags shared by every listing command.
type Options struct {
	Format string
	Filter string
	Sort   string
	Titles bool
	Color  bool
}

// OptionsFromCommand reads the global output flags off cmd.
func OptionsFromCommand(cmd *cli.Command) Options {
	return Options{
		Format: cmd.String("output"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
	}
}

// SliceDiceSpit filters, transforms, sorts and renders raw, a JSON array of
// rows, to w.
func SliceDiceSpit(raw []byte, al attrs.AttrList, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	if opts.Format == FormatRaw {
		_, err := w.Write(raw)
		return err
	}

	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("cannot render malformed result set")
	}

	fs, err := filters.Parse(opts.Filter)
	if err != nil {
		return err
	}
	dataset := filters.Apply(gjson.ParseBytes(raw), al, fs)

	for _, row := range dataset {
		for _, attr := range al {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}

	SortDataset(dataset, opts.Sort)

	switch opts.Format {
	case FormatJSON:
		out, err := json.Marshal(project(dataset, al))
		if err != nil {
			return fmt.Errorf("failed to render json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatYAML:
		out, err := yaml.Marshal(project(dataset, al))
		if err != nil {
			return fmt.Errorf("failed to render yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(dataset, al, opts, w)
		return nil
	}
}

// project drops hidden attributes from each row.
func project(dataset []map[string]any, al attrs.AttrList) []map[string]any {
	out := make([]map[string]any, 0, len(dataset))
	for _, row := range dataset {
		r := make(map[string]any, len(al))
		for _, attr := range al.Included() {
			r[attr.OutputKey] = row[attr.OutputKey]
		}
		out = append(out, r)
	}
	return out
}

// TableWriter renders the dataset as an unbordered table. Color only applies
// when w is a terminal.
func TableWriter(dataset []map[string]any, al attrs.AttrList, opts Options, w io.Writer) {
	if len(dataset) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color && isTerminal(w) {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	cols := al.Included()

	rows := make([][]string, 0, len(dataset))
	for _, result := range dataset {
		row := make([]string, 0, len(cols))
		for _, attr := range cols {
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	pad, _ := config.GetInt("padding", 2)

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}
			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		headers := make([]string, 0, len(cols))
		for _, attr := range cols {
			headers = append(headers, attr.OutputKey)
		}
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}

	fmt.Fprintln(w, t)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// getColors returns the configured table colors.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(key+".title", "#f6be00")
	even, _ = config.GetString(key+".even", "#ffffff")
	odd, _ = config.GetString(key+".odd", "#00c8f0")
	return
}

// InterfaceToString renders a cell. Zero values become emptyValue, "" by
// default.
func InterfaceToString(value any, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		out, err := json.Marshal(value)
		if err != nil {
			log.Debugf("cell %T is not json: %v", value, err)
			return fmt.Sprintf("%v", value)
		}
		return string(out)
	}
}
