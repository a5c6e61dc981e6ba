package analysis

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"salesight/internal/ingest"
)

// dateLayouts are tried in order when parsing the Date column. Spreadsheet
// exports are wildly inconsistent; this list covers ISO, US and the formats
// excelize emits for date-typed cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-Jan-06",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Normalizer applies a FieldMap to a RawTable and produces the canonical
// NormalizedTable the aggregation engine operates on.
//
// Normalization is deliberately lossy in one respect: every string field
// (Item, Category) is lower-cased so that later grouping is case-insensitive.
// Callers that need display casing must keep the RawTable.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize coerces the mapped columns into typed fields.
//
//   - Price: numeric, non-coercible cells become missing. A column with zero
//     coercible values fails with UnusableColumnError.
//   - Quantity: numeric when mapped; a constant 1 per row when absent.
//   - Date: parsed per dateLayouts; cells that fail are treated as dateless.
//     If every cell fails, date aggregates are disabled with a warning
//     instead of failing the pipeline.
//   - Total: Price × Quantity, missing when either operand is missing.
func (n *Normalizer) Normalize(ctx context.Context, table *ingest.RawTable, fm FieldMap) (*NormalizedTable, error) {
	nt := &NormalizedTable{
		Caps: Capabilities{
			HasQuantity: fm.Has(FieldQuantity),
			HasDate:     fm.Has(FieldDate),
			HasCategory: fm.Has(FieldCategory),
		},
		Records: make([]Record, 0, table.RowCount()),
	}

	itemCol := fm[FieldItem]
	priceCol := fm[FieldPrice]

	validPrices := 0
	datedRows := 0
	var priceSample string

	for i := range table.Rows {
		rec := Record{
			Item: strings.ToLower(table.Cell(i, itemCol)),
		}

		raw := table.Cell(i, priceCol)
		rec.Price = parseNumeric(raw)
		if rec.Price.Valid {
			validPrices++
		} else {
			nt.Diagnostics.PriceCoercionFailures++
			if priceSample == "" && raw != "" {
				priceSample = raw
			}
		}

		if nt.Caps.HasQuantity {
			rec.Quantity = parseNumeric(table.Cell(i, fm[FieldQuantity]))
			if !rec.Quantity.Valid {
				nt.Diagnostics.QuantityCoercionFailures++
			}
		} else {
			rec.Quantity = Num(1)
		}

		if rec.Price.Valid && rec.Quantity.Valid {
			rec.Total = Num(rec.Price.Value * rec.Quantity.Value)
		}

		if nt.Caps.HasDate {
			if d, ok := parseDate(table.Cell(i, fm[FieldDate])); ok {
				rec.Date = d
				rec.HasDate = true
				datedRows++
			} else {
				nt.Diagnostics.DateParseFailures++
			}
		}

		if nt.Caps.HasCategory {
			rec.Category = strings.ToLower(table.Cell(i, fm[FieldCategory]))
		}

		nt.Records = append(nt.Records, rec)
	}

	if len(table.Rows) > 0 && validPrices == 0 {
		return nil, &UnusableColumnError{
			Column: table.Columns[priceCol],
			Sample: priceSample,
		}
	}

	if nt.Diagnostics.PriceCoercionFailures > 0 {
		nt.Warnings = append(nt.Warnings, Warning{
			Code:    WarnPriceCoercion,
			Message: "non-numeric price values were treated as missing",
			Count:   nt.Diagnostics.PriceCoercionFailures,
		})
	}
	if nt.Diagnostics.QuantityCoercionFailures > 0 {
		nt.Warnings = append(nt.Warnings, Warning{
			Code:    WarnQuantityCoercion,
			Message: "non-numeric quantity values were treated as missing",
			Count:   nt.Diagnostics.QuantityCoercionFailures,
		})
	}

	// A mapped Date column that never parses disables time aggregates for
	// this table rather than failing the report.
	if nt.Caps.HasDate && datedRows == 0 {
		nt.Caps.HasDate = false
		nt.Warnings = append(nt.Warnings, Warning{
			Code:    WarnDatesDisabled,
			Message: "no date values could be parsed; time trend is omitted",
		})
	} else if nt.Diagnostics.DateParseFailures > 0 {
		nt.Warnings = append(nt.Warnings, Warning{
			Code:    WarnDateParse,
			Message: "some date values could not be parsed and were excluded from the time trend",
			Count:   nt.Diagnostics.DateParseFailures,
		})
	}

	n.logger.InfoContext(ctx, "table normalized",
		slog.Int("rows", len(nt.Records)),
		slog.Int("valid_prices", validPrices),
		slog.Bool("has_quantity", nt.Caps.HasQuantity),
		slog.Bool("has_date", nt.Caps.HasDate),
		slog.Bool("has_category", nt.Caps.HasCategory),
		slog.Int("price_coercion_failures", nt.Diagnostics.PriceCoercionFailures),
		slog.Int("date_parse_failures", nt.Diagnostics.DateParseFailures))

	return nt, nil
}

// parseNumeric coerces a cell to a float. Currency symbols, thousands
// separators and surrounding whitespace are tolerated; anything else is
// missing, never zero.
func parseNumeric(raw string) Numeric {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Numeric{}
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Numeric{}
	}
	// ParseFloat accepts "NaN" and "Inf" spellings; neither is a usable
	// price or quantity and either would poison every downstream sum.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Numeric{}
	}
	return Num(v)
}

// parseDate tries each known layout against the cell
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
