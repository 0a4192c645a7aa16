// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Output formats accepted by --output
const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want %s or %s)", format, formatTable, formatJSON)
	}
}

// section is one titled table of a table-format report
type section struct {
	title   string
	headers []string
	rows    [][]string
}

// printer writes a command result either as indented JSON or as lipgloss tables
type printer struct {
	w      io.Writer
	format string
}

// print writes data as JSON, or the sections as tables
func (p *printer) print(data any, sections ...section) error {
	if p.format == formatJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		if s.title != "" {
			fmt.Fprintln(p.w, titleStyle.Render(s.title))
		}
		if len(s.rows) == 0 {
			fmt.Fprintln(p.w, dimStyle.Render("(none)"))
			continue
		}
		fmt.Fprintln(p.w, renderTable(s.headers, s.rows, nil))
	}
	return nil
}

// renderTable renders rows under headers. cellFunc, when set, may restyle a body cell.
func renderTable(headers []string, rows [][]string, cellFunc func(row, col int) (lipgloss.Style, bool)) string {
	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if cellFunc != nil {
				if style, ok := cellFunc(row, col); ok {
					return style
				}
			}
			return cellStyle
		}).
		Headers(upper...).
		Rows(rows...).
		String()
}

// keyValues builds a two-column section from alternating key and value strings
func keyValues(title string, kv ...string) section {
	s := section{title: title, headers: []string{"field", "value"}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.rows = append(s.rows, []string{kv[i], kv[i+1]})
	}
	return s
}
