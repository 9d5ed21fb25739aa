package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func rowsTable(rows []row) func() *Table {
	return func() *Table {
		t := NewTable("ID", "Name")
		for _, r := range rows {
			t.AppendRow(r.ID, r.Name)
		}
		return t
	}
}

func TestPrinter_Formats(t *testing.T) {
	data := []row{{ID: 1, Name: "Acme Schools"}, {ID: 2, Name: "Globex Academy"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		p := &Printer{Out: &buf, Format: OutputFormatJSON}
		require.NoError(t, p.Print(data, rowsTable(data)))
		assert.JSONEq(t, `[{"id":1,"name":"Acme Schools"},{"id":2,"name":"Globex Academy"}]`, buf.String())
	})

	t.Run("yaml uses json field names", func(t *testing.T) {
		var buf bytes.Buffer
		p := &Printer{Out: &buf, Format: OutputFormatYAML}
		require.NoError(t, p.Print(data, rowsTable(data)))
		assert.Equal(t, "- id: 1\n  name: Acme Schools\n- id: 2\n  name: Globex Academy\n", buf.String())
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		p := &Printer{Out: &buf, Format: OutputFormatTable}
		require.NoError(t, p.Print(data, rowsTable(data)))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"ID", "NAME"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"1", "Acme", "Schools"}, strings.Fields(lines[1]))
		for _, line := range lines {
			assert.Equal(t, strings.TrimRight(line, " "), line, "no trailing spaces")
			assert.NotContains(t, line, "|")
		}
	})

	t.Run("table without headers", func(t *testing.T) {
		var buf bytes.Buffer
		p := &Printer{Out: &buf, Format: OutputFormatTable, NoHeaders: true}
		require.NoError(t, p.Print(data, rowsTable(data)))
		assert.NotContains(t, buf.String(), "NAME")
		assert.Contains(t, buf.String(), "Globex Academy")
	})
}

func TestTable_Cells(t *testing.T) {
	tbl := NewTable("A", "B", "C")
	tbl.AppendRow(nil, strings.Repeat("x", 100))
	require.Equal(t, 1, tbl.Len())

	var buf bytes.Buffer
	tbl.Render(&buf, true)
	fields := strings.Fields(buf.String())
	require.Len(t, fields, 2, "missing cell renders empty")
	assert.Equal(t, "-", fields[0])
	assert.Len(t, []rune(fields[1]), 60)
	assert.True(t, strings.HasSuffix(fields[1], "..."))
}

func TestTable_EmptyWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable("A").Render(&buf, true)
	assert.Empty(t, buf.String())
}
