package ingest

import "strings"

// RawTable is an ordered, loosely typed table as read from an upload.
// Columns preserve source order; cells are untyped strings and may be empty.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a source column, or -1 when absent.
// Lookup is exact first, then case-insensitive, matching how users type
// column names into a mapping form.
func (t *RawTable) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	for i, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell value at (row, col), empty when the row is
// ragged and does not reach col.
func (t *RawTable) Cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// RowCount returns the number of data rows
func (t *RawTable) RowCount() int {
	return len(t.Rows)
}

// cleanHeader normalizes a header cell: trims whitespace, strips a UTF-8 BOM
// and zero-width characters that spreadsheets leak into exports.
func cleanHeader(col string) string {
	col = strings.TrimSpace(col)
	col = strings.TrimPrefix(col, "\uFEFF")
	col = strings.TrimLeft(col, "\u200B\u200C\u200D\u2060\uFEFF")
	return strings.TrimSpace(col)
}

// isEmptyRow reports whether every cell in the row is blank
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
