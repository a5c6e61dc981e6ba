package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"log/slog"

	apperrors "salesight/internal/errors"
)

// CSVReader reads delimited uploads into RawTables
type CSVReader struct {
	logger  *slog.Logger
	maxRows int
}

// NewCSVReader creates a CSV reader. maxRows bounds data rows; zero means no bound.
func NewCSVReader(logger *slog.Logger, maxRows int) *CSVReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVReader{
		logger:  logger.With(slog.String("component", "csv_reader")),
		maxRows: maxRows,
	}
}

// Read parses a CSV stream. The first non-empty record is the header. A UTF-8
// BOM, common in Excel-exported CSVs, is stripped before parsing. Ragged rows
// are tolerated; missing trailing cells read as empty.
func (r *CSVReader) Read(ctx context.Context, src io.Reader) (*RawTable, error) {
	buffered := bufio.NewReader(src)
	if err := stripBOM(buffered); err != nil && err != io.EOF {
		return nil, apperrors.NewParsingError("failed to read CSV stream", err)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := &RawTable{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to parse CSV record", err)
		}
		if isEmptyRow(record) {
			continue
		}

		if table.Columns == nil {
			for _, col := range record {
				table.Columns = append(table.Columns, cleanHeader(col))
			}
			continue
		}

		table.Rows = append(table.Rows, record)
		if r.maxRows > 0 && len(table.Rows) > r.maxRows {
			return nil, apperrors.NewValidationError("CSV exceeds row limit").
				WithContext("max_rows", r.maxRows)
		}
	}

	if table.Columns == nil {
		return nil, apperrors.NewParsingError("CSV contains no tabular data", nil)
	}

	r.logger.InfoContext(ctx, "CSV ingested",
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// stripBOM consumes a leading UTF-8 byte order mark if present
func stripBOM(r *bufio.Reader) error {
	prefix, err := r.Peek(3)
	if len(prefix) < 3 {
		return err
	}
	if prefix[0] == 0xEF && prefix[1] == 0xBB && prefix[2] == 0xBF {
		_, err = r.Discard(3)
	}
	return err
}
