package ingest

import (
	"context"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "salesight/internal/errors"
)

// XLSXReader reads workbook uploads into RawTables
type XLSXReader struct {
	logger  *slog.Logger
	maxRows int
}

// NewXLSXReader creates a workbook reader. maxRows bounds the combined row
// count across sheets; zero means no bound.
func NewXLSXReader(logger *slog.Logger, maxRows int) *XLSXReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXReader{
		logger:  logger.With(slog.String("component", "xlsx_reader")),
		maxRows: maxRows,
	}
}

// Read reads every sheet of the workbook and concatenates the rows into one
// RawTable. Sheets are aligned by header name: the combined column set is the
// union of all sheet headers in first-seen order, and cells for columns a
// sheet lacks are left empty.
func (r *XLSXReader) Read(ctx context.Context, src io.Reader) (*RawTable, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	table := &RawTable{}
	columnPos := make(map[string]int)

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read sheet", err).
				WithContext("sheet", sheet)
		}

		header, dataRows := splitHeader(rows)
		if header == nil {
			r.logger.WarnContext(ctx, "skipping sheet without header row",
				slog.String("sheet", sheet))
			continue
		}

		// Map this sheet's columns into the combined column set
		indexMap := make([]int, len(header))
		for i, col := range header {
			name := cleanHeader(col)
			if name == "" {
				indexMap[i] = -1
				continue
			}
			pos, ok := columnPos[name]
			if !ok {
				pos = len(table.Columns)
				columnPos[name] = pos
				table.Columns = append(table.Columns, name)
			}
			indexMap[i] = pos
		}

		for _, row := range dataRows {
			if isEmptyRow(row) {
				continue
			}
			combined := make([]string, len(table.Columns))
			for i, cell := range row {
				if i < len(indexMap) && indexMap[i] >= 0 {
					combined[indexMap[i]] = cell
				}
			}
			table.Rows = append(table.Rows, combined)
			if r.maxRows > 0 && len(table.Rows) > r.maxRows {
				return nil, apperrors.NewValidationError("workbook exceeds row limit").
					WithContext("max_rows", r.maxRows)
			}
		}

		r.logger.DebugContext(ctx, "sheet ingested",
			slog.String("sheet", sheet),
			slog.Int("columns", len(header)),
			slog.Int("total_rows", len(table.Rows)))
	}

	if len(table.Columns) == 0 {
		return nil, apperrors.NewParsingError("workbook contains no tabular data", nil)
	}

	// Earlier sheets may have produced shorter rows than the final column set
	for i, row := range table.Rows {
		if len(row) < len(table.Columns) {
			padded := make([]string, len(table.Columns))
			copy(padded, row)
			table.Rows[i] = padded
		}
	}

	r.logger.InfoContext(ctx, "workbook ingested",
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// splitHeader finds the first non-empty row and treats it as the header
func splitHeader(rows [][]string) ([]string, [][]string) {
	for i, row := range rows {
		if !isEmptyRow(row) {
			return row, rows[i+1:]
		}
	}
	return nil, nil
}
