package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// resolveFormat maps the configured output format to a concrete one.
// "auto" picks text on a terminal and markdown when piped.
func resolveFormat(format string) string {
	switch format {
	case "", "auto":
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return "text"
		}
		return "markdown"
	default:
		return format
	}
}

// terminalWidth returns the current terminal width, or a sane default
// when stdout is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}

// renderRows writes a header and rows in the requested format.
func renderRows(w io.Writer, format string, header []string, rows [][]string) error {
	if resolveFormat(format) == "json" {
		return renderRowsJSON(w, header, rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetAllowedRowLength(terminalWidth())

	headerRow := make(table.Row, len(header))
	for i, col := range header {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	if resolveFormat(format) == "markdown" {
		t.RenderMarkdown()
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func renderRowsJSON(w io.Writer, header []string, rows [][]string) error {
	results := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(r) {
				row[col] = r[i]
			}
		}
		results = append(results, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
