// Package viewer loads a node's output table and presents it in pages,
// with client-side filtering and CSV export.
package viewer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// PageSize is the number of rows shown per page.
const PageSize = 50

// Fetcher is the slice of the API client the viewer needs.
type Fetcher interface {
	GetTablePage(ctx context.Context, projectID int, ref tableref.Ref) (*api.TablePage, error)
}

// Viewer holds one loaded table and its view state: a filter query and a
// page cursor over the filtered rows.
type Viewer struct {
	Ref   tableref.Ref
	Title string

	columns []string
	rows    [][]string

	filter   string
	filtered [][]string
	page     int
}

// Load fetches the full table for ref and returns a viewer positioned on
// the first page.
func Load(ctx context.Context, client Fetcher, projectID int, ref tableref.Ref, title string) (*Viewer, error) {
	page, err := client.GetTablePage(ctx, projectID, ref)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", ref, err)
	}

	rows := make([][]string, 0, len(page.Data))
	for _, raw := range page.Data {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = formatCell(cell)
		}
		rows = append(rows, row)
	}

	v := &Viewer{
		Ref:     ref,
		Title:   title,
		columns: page.Columns,
		rows:    rows,
	}
	v.filtered = rows
	return v, nil
}

// formatCell renders one JSON-decoded cell for display. Numbers arrive as
// float64; integral values print without the trailing ".0" noise.
func formatCell(cell any) string {
	switch c := cell.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		if c == float64(int64(c)) {
			return strconv.FormatInt(int64(c), 10)
		}
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}

// Columns returns the table's column names.
func (v *Viewer) Columns() []string {
	return v.columns
}

// TotalRows returns the unfiltered row count.
func (v *Viewer) TotalRows() int {
	return len(v.rows)
}

// MatchCount returns the row count after filtering.
func (v *Viewer) MatchCount() int {
	return len(v.filtered)
}

// SetFilter applies a case-insensitive substring filter across all cells
// and resets to the first page. An empty query clears the filter.
func (v *Viewer) SetFilter(query string) {
	v.filter = query
	v.page = 0
	if query == "" {
		v.filtered = v.rows
		return
	}

	needle := strings.ToLower(query)
	var out [][]string
	for _, row := range v.rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), needle) {
				out = append(out, row)
				break
			}
		}
	}
	v.filtered = out
}

// Filter returns the active filter query.
func (v *Viewer) Filter() string {
	return v.filter
}

// PageCount returns the number of pages over the filtered rows. An empty
// result still has one (empty) page.
func (v *Viewer) PageCount() int {
	if len(v.filtered) == 0 {
		return 1
	}
	return (len(v.filtered) + PageSize - 1) / PageSize
}

// Page returns the current page number (zero-based).
func (v *Viewer) Page() int {
	return v.page
}

// SetPage clamps n into range and moves the cursor.
func (v *Viewer) SetPage(n int) {
	last := v.PageCount() - 1
	if n < 0 {
		n = 0
	}
	if n > last {
		n = last
	}
	v.page = n
}

// NextPage advances one page, stopping at the last.
func (v *Viewer) NextPage() {
	v.SetPage(v.page + 1)
}

// PrevPage goes back one page, stopping at the first.
func (v *Viewer) PrevPage() {
	v.SetPage(v.page - 1)
}

// Rows returns the rows of the current page.
func (v *Viewer) Rows() [][]string {
	start := v.page * PageSize
	if start >= len(v.filtered) {
		return nil
	}
	end := start + PageSize
	if end > len(v.filtered) {
		end = len(v.filtered)
	}
	return v.filtered[start:end]
}

// ExportCSV writes the filtered rows (all pages) as CSV, header first.
func (v *Viewer) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range v.filtered {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
