package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestXLSXReader_Read(t *testing.T) {
	ctx := context.Background()

	buf := buildWorkbook(t, map[string][][]interface{}{
		"Orders": {
			{"Product", "Amount", "Qty"},
			{"Widget", 10.5, 2},
			{"Gadget", 3, 1},
		},
	})

	reader := NewXLSXReader(testLogger(), 0)
	table, err := reader.Read(ctx, buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Amount", "Qty"}, table.Columns)
	require.Equal(t, 2, table.RowCount())
	assert.Equal(t, "Widget", table.Cell(0, 0))
	assert.Equal(t, "10.5", table.Cell(0, 1))
}

func TestXLSXReader_CombinesSheetsByHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Jan"))
	require.NoError(t, f.SetSheetRow("Jan", "A1", &[]interface{}{"Product", "Amount"}))
	require.NoError(t, f.SetSheetRow("Jan", "A2", &[]interface{}{"Widget", 10}))

	_, err := f.NewSheet("Feb")
	require.NoError(t, err)
	// Same fields, different order, plus an extra column
	require.NoError(t, f.SetSheetRow("Feb", "A1", &[]interface{}{"Amount", "Product", "Qty"}))
	require.NoError(t, f.SetSheetRow("Feb", "A2", &[]interface{}{20, "Gadget", 3}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	reader := NewXLSXReader(testLogger(), 0)
	table, err := reader.Read(context.Background(), buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Amount", "Qty"}, table.Columns)
	require.Equal(t, 2, table.RowCount())

	// Jan row padded with empty Qty
	assert.Equal(t, "Widget", table.Cell(0, 0))
	assert.Equal(t, "10", table.Cell(0, 1))
	assert.Equal(t, "", table.Cell(0, 2))

	// Feb row realigned to combined column order
	assert.Equal(t, "Gadget", table.Cell(1, 0))
	assert.Equal(t, "20", table.Cell(1, 1))
	assert.Equal(t, "3", table.Cell(1, 2))
}

func TestXLSXReader_SkipsLeadingBlankRows(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]interface{}{
		"Data": {
			{},
			{"Product", "Amount"},
			{"Widget", 5},
		},
	})

	reader := NewXLSXReader(testLogger(), 0)
	table, err := reader.Read(context.Background(), buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Amount"}, table.Columns)
	assert.Equal(t, 1, table.RowCount())
}

func TestXLSXReader_EmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	reader := NewXLSXReader(testLogger(), 0)
	_, err = reader.Read(context.Background(), buf)
	require.Error(t, err)
}

func TestXLSXReader_RowLimit(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]interface{}{
		"Data": {
			{"Product", "Amount"},
			{"a", 1},
			{"b", 2},
			{"c", 3},
		},
	})

	reader := NewXLSXReader(testLogger(), 2)
	_, err := reader.Read(context.Background(), buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row limit")
}
