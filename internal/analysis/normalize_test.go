package analysis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesight/internal/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func normalize(t *testing.T, table *ingest.RawTable, m Mapping) *NormalizedTable {
	t.Helper()
	fm, err := BuildFieldMap(table, m)
	require.NoError(t, err)
	nt, err := NewNormalizer(testLogger()).Normalize(context.Background(), table, fm)
	require.NoError(t, err)
	return nt
}

func TestNormalize_PriceCoercion(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price"},
		Rows: [][]string{
			{"Widget", "10"},
			{"Gadget", "abc"},
			{"Gizmo", "20"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price"})

	require.Len(t, nt.Records, 3)
	assert.Equal(t, Num(10), nt.Records[0].Price)
	assert.False(t, nt.Records[1].Price.Valid, "non-numeric price is missing, not zero")
	assert.Equal(t, Num(20), nt.Records[2].Price)
	assert.Equal(t, 1, nt.Diagnostics.PriceCoercionFailures)

	require.Len(t, nt.Warnings, 1)
	assert.Equal(t, WarnPriceCoercion, nt.Warnings[0].Code)
}

func TestNormalize_AllPricesUnusable(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Notes"},
		Rows: [][]string{
			{"Widget", "red"},
			{"Gadget", "blue"},
		},
	}

	fm, err := BuildFieldMap(table, Mapping{Item: "Item", Price: "Notes"})
	require.NoError(t, err)

	_, err = NewNormalizer(testLogger()).Normalize(context.Background(), table, fm)
	var unusable *UnusableColumnError
	require.ErrorAs(t, err, &unusable)
	assert.Equal(t, "Notes", unusable.Column)
	assert.Equal(t, "red", unusable.Sample)
}

func TestNormalize_QuantityDefaultsToOne(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price"},
		Rows:    [][]string{{"Widget", "10"}, {"Gadget", "20"}},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price"})

	assert.False(t, nt.Caps.HasQuantity)
	for _, rec := range nt.Records {
		assert.Equal(t, Num(1), rec.Quantity)
	}
	assert.Equal(t, Num(10), nt.Records[0].Total)
}

func TestNormalize_TotalMissingWhenOperandMissing(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price", "Qty"},
		Rows: [][]string{
			{"Widget", "10", "3"},
			{"Gadget", "x", "2"},
			{"Gizmo", "5", "two"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price", Quantity: "Qty"})

	assert.Equal(t, Num(30), nt.Records[0].Total)
	assert.False(t, nt.Records[1].Total.Valid)
	assert.False(t, nt.Records[2].Total.Valid)
	assert.Equal(t, 1, nt.Diagnostics.QuantityCoercionFailures)
}

func TestNormalize_NumericFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want Numeric
	}{
		{"10", Num(10)},
		{"10.5", Num(10.5)},
		{"$1,234.50", Num(1234.5)},
		{" 7 ", Num(7)},
		{"-3.2", Num(-3.2)},
		{"", Numeric{}},
		{"abc", Numeric{}},
		{"12x", Numeric{}},
		{"NaN", Numeric{}},
		{"nan", Numeric{}},
		{"Inf", Numeric{}},
		{"+Inf", Numeric{}},
		{"-Inf", Numeric{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseNumeric(tt.raw), "raw %q", tt.raw)
	}
}

func TestNormalize_NaNPriceDoesNotPoisonSums(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price"},
		Rows: [][]string{
			{"Widget", "10"},
			{"Gadget", "NaN"},
			{"Gizmo", "20"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price"})

	require.Len(t, nt.Records, 3)
	assert.False(t, nt.Records[1].Price.Valid, "a literal NaN cell is missing, not a valid price")
	assert.Equal(t, 1, nt.Diagnostics.PriceCoercionFailures)

	stats := NewEngine(testLogger()).BasicStatistics(context.Background(), nt)
	require.NotNil(t, stats)
	assert.InDelta(t, 30, stats.TotalRevenue, 1e-9)
	assert.InDelta(t, 15, stats.AvgUnitPrice.Value, 1e-9)
}

func TestNormalize_DateHandling(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price", "When"},
		Rows: [][]string{
			{"Widget", "10", "2024-01-15"},
			{"Gadget", "20", "01/20/2024"},
			{"Gizmo", "30", "not a date"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price", Date: "When"})

	assert.True(t, nt.Caps.HasDate)
	assert.True(t, nt.Records[0].HasDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nt.Records[0].Date)
	assert.True(t, nt.Records[1].HasDate)
	assert.False(t, nt.Records[2].HasDate)
	assert.Equal(t, 1, nt.Diagnostics.DateParseFailures)

	require.Len(t, nt.Warnings, 1)
	assert.Equal(t, WarnDateParse, nt.Warnings[0].Code)
}

func TestNormalize_AllDatesUnparseableDisablesDateAggregates(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price", "When"},
		Rows: [][]string{
			{"Widget", "10", "soon"},
			{"Gadget", "20", "later"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price", Date: "When"})

	assert.False(t, nt.Caps.HasDate, "date aggregates disabled, pipeline not failed")
	require.Len(t, nt.Warnings, 1)
	assert.Equal(t, WarnDatesDisabled, nt.Warnings[0].Code)
}

func TestNormalize_LowercasesStrings(t *testing.T) {
	table := &ingest.RawTable{
		Columns: []string{"Item", "Price", "Dept"},
		Rows: [][]string{
			{"WIDGET", "10", "Electronics"},
			{"Widget", "20", "ELECTRONICS"},
		},
	}

	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price", Category: "Dept"})

	assert.Equal(t, "widget", nt.Records[0].Item)
	assert.Equal(t, "widget", nt.Records[1].Item)
	assert.Equal(t, "electronics", nt.Records[0].Category)
	assert.Equal(t, "electronics", nt.Records[1].Category)
}

func TestNormalize_EmptyTable(t *testing.T) {
	table := &ingest.RawTable{Columns: []string{"Item", "Price"}}
	nt := normalize(t, table, Mapping{Item: "Item", Price: "Price"})
	assert.Empty(t, nt.Records)
}
