// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/tfctl/opsctl/internal/config"
)

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
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
	case float64:
		// Sizes and counts are whole numbers.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// Options controls how rows are rendered.
type Options struct {
	// Format is text, json or yaml.
	Format  string
	Titles  bool
	Color   bool
	Padding int
	// Sort is a comma separated list of columns, see SortDataset.
	Sort   string
	Header string
	Footer string
}

// OptionsFrom reads the shared output flags of cmd.
func OptionsFrom(cmd *cli.Command) Options {
	o := Options{
		Format:  cmd.String("output"),
		Titles:  cmd.Bool("titles"),
		Color:   cmd.Bool("color"),
		Padding: int(cmd.Int("padding")),
		Sort:    cmd.String("sort"),
	}
	if h, ok := cmd.Metadata["header"].(string); ok {
		o.Header = h
	}
	if f, ok := cmd.Metadata["footer"].(string); ok {
		o.Footer = f
	}
	return o
}

// Spit renders rows, restricted to columns, in the requested format. Rows are
// sorted first when opts.Sort is set.
func Spit(w io.Writer, columns []string, rows []map[string]interface{}, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	if opts.Sort != "" {
		SortDataset(rows, opts.Sort)
	}

	switch opts.Format {
	case "json":
		ordered := make([]map[string]interface{}, len(rows))
		for i, row := range rows {
			ordered[i] = make(map[string]interface{}, len(columns))
			for _, c := range columns {
				ordered[i][c] = row[c]
			}
		}
		out, err := json.MarshalIndent(ordered, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		// MapSlice keeps the column order.
		projected := make([]yaml.MapSlice, len(rows))
		for i, row := range rows {
			for _, c := range columns {
				projected[i] = append(projected[i], yaml.MapItem{Key: c, Value: row[c]})
			}
		}
		out, err := yaml.Marshal(projected)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(w, columns, rows, opts)
		return nil
	}
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(w io.Writer, columns []string, resultSet []map[string]interface{}, opts Options) {
	if w == nil {
		w = os.Stdout
	}

	// We return early if there are no results to display.
	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left).Bold(true)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(headerColor)
		evenRowStyle = evenRowStyle.Foreground(evenColor)
		oddRowStyle = oddRowStyle.Foreground(oddColor)
	}

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			row = append(row, InterfaceToString(result[c], "-"))
		}
		rows = append(rows, row)
	}

	if opts.Header != "" {
		fmt.Fprintln(w, headerStyle.Render(opts.Header))
	}

	pad := opts.Padding
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
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(columns...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)

	if opts.Footer != "" {
		fmt.Fprintln(w, headerStyle.Render(opts.Footer))
	}
}

// Document writes a JSON document, or the part of it selected by a gjson
// query, as indented json or as yaml.
func Document(w io.Writer, raw []byte, query, format string) error {
	if w == nil {
		w = os.Stdout
	}

	result := gjson.ParseBytes(raw)
	if query != "" {
		result = result.Get(query)
		if !result.Exists() {
			return fmt.Errorf("query %q matched nothing", query)
		}
	}

	switch format {
	case "yaml":
		var v interface{}
		if err := yaml.Unmarshal([]byte(result.Raw), &v); err != nil {
			return fmt.Errorf("yaml convert: %w", err)
		}
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "text":
		if result.Type == gjson.String {
			_, err := fmt.Fprintln(w, result.String())
			return err
		}
		fallthrough
	default:
		_, err := fmt.Fprintln(w, strings.TrimRight(result.Get("@pretty").Raw, "\n"))
		return err
	}
}

// getColors returns configured color values for table rendering. Each color is
// selected based on terminal background color and brightness so that we can
// make sure output is reasonably visible for all(?) terminal themes.
func getColors(key string) (header, even, odd color.Color) {
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

	// Use the explicit color if found in the config and leave it up to the user
	// to choose appropriate colors for their theme. If not found, pick a
	// reasonable default based on terminal background.
	resolveColor := func(key string, light string, dark string) color.Color {
		colorCfg, err := config.GetString(key)
		if err == nil {
			return lipgloss.Color(colorCfg)
		}

		if isDark {
			return lipgloss.Color(dark)
		}
		return lipgloss.Color(light)
	}

	header = resolveColor(key+".title", "#b08800", "#f6be00")
	even = resolveColor(key+".even", "#333333", "#ff9900")
	odd = resolveColor(key+".odd", "#0088a0", "#00c8f0")

	return
}
