package analysis

import "time"

// Field is one of the fixed semantic roles the engine understands,
// independent of how the source spreadsheet names its columns.
type Field string

const (
	FieldItem     Field = "Item"
	FieldPrice    Field = "Price"
	FieldQuantity Field = "Quantity"
	FieldDate     Field = "Date"
	FieldCategory Field = "Category"
)

// RequiredFields must be mapped for any analysis to run
var RequiredFields = []Field{FieldItem, FieldPrice}

// OptionalFields degrade gracefully when unmapped
var OptionalFields = []Field{FieldQuantity, FieldDate, FieldCategory}

// FieldMap is the user-declared correspondence from canonical field to
// source column index. Optional fields that were not mapped are absent.
type FieldMap map[Field]int

// Capabilities records once, at normalization time, which optional fields
// are available. Every aggregate consults these flags instead of re-probing
// the table shape.
type Capabilities struct {
	HasQuantity bool
	HasDate     bool
	HasCategory bool
}

// Numeric is a float64 cell that may be missing. Missing values are excluded
// from sums and means; they are never treated as zero.
type Numeric struct {
	Value float64
	Valid bool
}

// Num builds a valid Numeric
func Num(v float64) Numeric {
	return Numeric{Value: v, Valid: true}
}

// Record is one normalized transaction row
type Record struct {
	Item     string
	Price    Numeric
	Quantity Numeric
	Total    Numeric
	Date     time.Time
	HasDate  bool
	Category string
}

// Diagnostics counts lossy coercions applied during normalization
type Diagnostics struct {
	PriceCoercionFailures    int
	QuantityCoercionFailures int
	DateParseFailures        int
}

// Warning is a non-fatal degradation signal. Warnings are collected during
// normalization and aggregation and surface in the report's diagnostics
// section; they never abort the pipeline.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Warning codes
const (
	WarnPriceCoercion    = "PRICE_COERCED_TO_MISSING"
	WarnQuantityCoercion = "QUANTITY_COERCED_TO_MISSING"
	WarnDateParse        = "DATE_UNPARSEABLE"
	WarnDatesDisabled    = "DATE_AGGREGATES_DISABLED"
	WarnZeroDenominator  = "ZERO_DENOMINATOR"
	WarnChartRender      = "CHART_RENDER_FAILED"
)

// NormalizedTable is the canonical table every aggregate operates on.
// It is built fresh per request and discarded with the report.
type NormalizedTable struct {
	Records     []Record
	Caps        Capabilities
	Diagnostics Diagnostics
	Warnings    []Warning
}

// BasicStats is the battery of global descriptive statistics. Values are
// numeric; currency/percentage formatting is the report layer's concern.
type BasicStats struct {
	TotalRevenue        float64 `json:"total_revenue"`
	AvgUnitPrice        Numeric `json:"avg_unit_price"`
	MaxUnitPrice        Numeric `json:"max_unit_price"`
	MinUnitPrice        Numeric `json:"min_unit_price"`
	TotalQuantity       float64 `json:"total_quantity"`
	AvgItemsPerRow      Numeric `json:"avg_items_per_row"`
	AvgTransactionValue Numeric `json:"avg_transaction_value"`
	UniqueItems         int     `json:"unique_items"`
	Transactions        int     `json:"transactions"`
	Categories          int     `json:"categories,omitempty"`
	HasCategories       bool    `json:"-"`
}

// CategoryRow is one group in the category breakdown
type CategoryRow struct {
	Category   string  `json:"category"`
	Revenue    float64 `json:"revenue"`
	AvgRevenue float64 `json:"avg_revenue"`
	Orders     int     `json:"orders"`
	Units      float64 `json:"units"`
	RevenuePct Numeric `json:"revenue_pct"`
	OrdersPct  Numeric `json:"orders_pct"`
}

// ItemRow is one entry of the item ranking
type ItemRow struct {
	Item         string  `json:"item"`
	Revenue      float64 `json:"revenue"`
	Units        float64 `json:"units"`
	AvgUnitPrice Numeric `json:"avg_unit_price"`
	Category     string  `json:"category,omitempty"`
}

// TrendPoint is one month-end bucket of the time trend
type TrendPoint struct {
	Month        time.Time `json:"month"`
	Revenue      float64   `json:"revenue"`
	Units        float64   `json:"units"`
	Transactions int       `json:"transactions"`
}

// DistributionEntry is one label of a categorical distribution
type DistributionEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
