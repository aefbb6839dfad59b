// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/staranto/dartrun/internal/config"
)

// Format selects how a result set is emitted.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// TableOptions controls TableWriter.
type TableOptions struct {
	Titles  bool
	Color   bool
	Padding int
	Colors  Colors
}

// Colors are the foreground colors of the header and of even and odd rows.
type Colors struct {
	Header string
	Even   string
	Odd    string
}

// DefaultTableOptions reads padding, titles and colors from cfg. Color is on only
// when w is a terminal.
func DefaultTableOptions(cfg config.Type, w io.Writer) TableOptions {
	pad, _ := cfg.GetInt("padding", 2)
	log.Debugf("padding: %v", pad)

	titles, err := cfg.GetBool("titles", true)
	if err != nil {
		titles = true
	}

	return TableOptions{
		Titles:  titles,
		Color:   IsTerminal(w),
		Padding: pad,
		Colors:  getColors(cfg, "colors"),
	}
}

// Emit writes rows in the requested format. For json and yaml every row
// becomes a mapping keyed by its header.
func Emit(w io.Writer, format Format, headers []string, rows [][]string, opts TableOptions) error {
	if w == nil {
		w = os.Stdout
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records(headers, rows)); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2) //nolint:mnd
		if err := enc.Encode(records(headers, rows)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		TableWriter(w, headers, rows, opts)
	}
	return nil
}

// records turns rows into ordered mappings. yaml.Node keeps header order,
// which a Go map would not.
func records(headers []string, rows [][]string) []*orderedRecord {
	out := make([]*orderedRecord, 0, len(rows))
	for _, row := range rows {
		r := &orderedRecord{}
		for i, h := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			r.keys = append(r.keys, h)
			r.values = append(r.values, v)
		}
		out = append(out, r)
	}
	return out
}

type orderedRecord struct {
	keys   []string
	values []string
}

func (r *orderedRecord) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (r *orderedRecord) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i, k := range r.keys {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.values[i]})
	}
	return n, nil
}

// TableWriter renders rows in a tabular form honoring color, titles and
// padding options.
func TableWriter(w io.Writer, headers []string, rows [][]string, opts TableOptions) {
	if len(rows) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerStyle = headerStyle.Foreground(lipgloss.Color(opts.Colors.Header))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(opts.Colors.Even))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(opts.Colors.Odd))
	}

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
				style = style.PaddingLeft(opts.Padding)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles && len(headers) > 0 {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// KeyValues renders label/value pairs as a two column table without titles.
func KeyValues(w io.Writer, pairs [][2]string, opts TableOptions) {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	opts.Titles = false
	TableWriter(w, nil, rows, opts)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// getColors returns configured color values for table rendering.
func getColors(cfg config.Type, key string) Colors {
	header, _ := cfg.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ := cfg.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ := cfg.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return Colors{Header: header, Even: even, Odd: odd}
}
