package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	pstrings "portalctl/pkg/strings"
)

// plainStyle renders kubectl-style tables: no borders, upper-case headers
// and three spaces between columns, so output stays easy to grep and cut.
var plainStyle = func() table.Style {
	style := table.StyleDefault
	style.Name = "plain"
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Options = table.Options{}
	style.Format.Header = text.FormatUpper
	return style
}()

// Table collects rows for plain table output.
type Table struct {
	headers table.Row
	rows    []table.Row
	// MaxCellLen truncates long cells; zero disables truncation.
	MaxCellLen int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return &Table{headers: row, MaxCellLen: pstrings.DefaultCellMaxLen}
}

// AppendRow adds a row. Missing cells render empty, nil cells render "-".
func (t *Table) AppendRow(cells ...any) {
	row := make(table.Row, len(t.headers))
	for i := range row {
		if i >= len(cells) {
			row[i] = ""
			continue
		}
		row[i] = t.cell(cells[i])
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) cell(v any) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprint(v)
	if t.MaxCellLen > 0 {
		s = pstrings.Truncate(s, t.MaxCellLen)
	}
	return s
}

// Render writes the table. Nothing is written for an empty table without headers.
func (t *Table) Render(w io.Writer, noHeaders bool) {
	if len(t.headers) == 0 || (len(t.rows) == 0 && noHeaders) {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(plainStyle)
	tw.SuppressTrailingSpaces()
	if !noHeaders {
		tw.AppendHeader(t.headers)
	}
	tw.AppendRows(t.rows)
	tw.Render()
}
