package analysis

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"
)

// Engine computes the fixed battery of descriptive aggregates over a
// NormalizedTable. Every method degrades to a nil result, never an error,
// when the fields it needs are absent; callers omit the corresponding report
// section. Zero-denominator percentages surface as warnings on the table.
//
// An Engine holds no per-request state; construct results are value objects
// owned by the caller.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an aggregation engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "aggregation_engine"))}
}

// BasicStatistics computes the global summary. Missing cells are excluded
// from sums and from mean denominators; a table of three prices with one
// unparseable cell has its mean taken over the two valid values.
func (e *Engine) BasicStatistics(ctx context.Context, t *NormalizedTable) *BasicStats {
	if len(t.Records) == 0 {
		return nil
	}

	stats := &BasicStats{
		Transactions:  len(t.Records),
		HasCategories: t.Caps.HasCategory,
	}

	var (
		priceSum   float64
		priceCount int
		qtySum     float64
		qtyCount   int
		items      = make(map[string]struct{})
		categories = make(map[string]struct{})
	)

	for _, rec := range t.Records {
		if rec.Total.Valid {
			stats.TotalRevenue += rec.Total.Value
		}
		if rec.Price.Valid {
			priceSum += rec.Price.Value
			priceCount++
			if !stats.MaxUnitPrice.Valid || rec.Price.Value > stats.MaxUnitPrice.Value {
				stats.MaxUnitPrice = Num(rec.Price.Value)
			}
			if !stats.MinUnitPrice.Valid || rec.Price.Value < stats.MinUnitPrice.Value {
				stats.MinUnitPrice = Num(rec.Price.Value)
			}
		}
		if rec.Quantity.Valid {
			qtySum += rec.Quantity.Value
			qtyCount++
		}
		if rec.Item != "" {
			items[rec.Item] = struct{}{}
		}
		if t.Caps.HasCategory && rec.Category != "" {
			categories[rec.Category] = struct{}{}
		}
	}

	stats.TotalQuantity = qtySum
	stats.UniqueItems = len(items)
	if priceCount > 0 {
		stats.AvgUnitPrice = Num(priceSum / float64(priceCount))
	}
	if qtyCount > 0 {
		stats.AvgItemsPerRow = Num(qtySum / float64(qtyCount))
	}
	if stats.Transactions > 0 {
		stats.AvgTransactionValue = Num(stats.TotalRevenue / float64(stats.Transactions))
	}
	if t.Caps.HasCategory {
		stats.Categories = len(categories)
	}

	e.logger.DebugContext(ctx, "basic statistics computed",
		slog.Float64("total_revenue", stats.TotalRevenue),
		slog.Int("transactions", stats.Transactions),
		slog.Int("unique_items", stats.UniqueItems))

	return stats
}

// GroupByCategory breaks revenue down per category, sorted descending by
// revenue with a stable first-encountered tie-break. Percentage columns are
// shares of the grand totals across all groups, rounded to two decimals
// after aggregation. Returns nil when no Category column is mapped.
func (e *Engine) GroupByCategory(ctx context.Context, t *NormalizedTable) []CategoryRow {
	if !t.Caps.HasCategory || len(t.Records) == 0 {
		return nil
	}

	type bucket struct {
		revenue float64
		orders  int
		units   float64
	}

	var order []string
	buckets := make(map[string]*bucket)

	for _, rec := range t.Records {
		if rec.Category == "" {
			continue
		}
		b, ok := buckets[rec.Category]
		if !ok {
			b = &bucket{}
			buckets[rec.Category] = b
			order = append(order, rec.Category)
		}
		if rec.Total.Valid {
			b.revenue += rec.Total.Value
			b.orders++
		}
		if rec.Quantity.Valid {
			b.units += rec.Quantity.Value
		}
	}

	if len(order) == 0 {
		return nil
	}

	var grandRevenue float64
	var grandOrders int
	rows := make([]CategoryRow, 0, len(order))
	for _, cat := range order {
		b := buckets[cat]
		row := CategoryRow{
			Category: cat,
			Revenue:  b.revenue,
			Orders:   b.orders,
			Units:    b.units,
		}
		if b.orders > 0 {
			row.AvgRevenue = b.revenue / float64(b.orders)
		}
		grandRevenue += b.revenue
		grandOrders += b.orders
		rows = append(rows, row)
	}

	for i := range rows {
		rows[i].RevenuePct = percentage(rows[i].Revenue, grandRevenue)
		rows[i].OrdersPct = percentage(float64(rows[i].Orders), float64(grandOrders))
	}
	if grandRevenue == 0 || grandOrders == 0 {
		t.Warnings = append(t.Warnings, Warning{
			Code:    WarnZeroDenominator,
			Message: "a percentage denominator was zero; affected shares are reported as missing",
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})

	e.logger.DebugContext(ctx, "category breakdown computed",
		slog.Int("categories", len(rows)),
		slog.Float64("grand_revenue", grandRevenue))

	return rows
}

// TopItems ranks items by total revenue, descending, returning at most n
// rows. Average unit price is revenue over units; when an item sold zero
// units it is reported missing, not infinite. When a Category column is
// present each item carries its modal category, first mode winning ties.
func (e *Engine) TopItems(ctx context.Context, t *NormalizedTable, n int) []ItemRow {
	if len(t.Records) == 0 || n <= 0 {
		return nil
	}

	type bucket struct {
		revenue    float64
		units      float64
		categories map[string]int
		catOrder   []string
	}

	var order []string
	buckets := make(map[string]*bucket)

	for _, rec := range t.Records {
		if rec.Item == "" {
			continue
		}
		b, ok := buckets[rec.Item]
		if !ok {
			b = &bucket{categories: make(map[string]int)}
			buckets[rec.Item] = b
			order = append(order, rec.Item)
		}
		if rec.Total.Valid {
			b.revenue += rec.Total.Value
		}
		if rec.Quantity.Valid {
			b.units += rec.Quantity.Value
		}
		if t.Caps.HasCategory && rec.Category != "" {
			if _, seen := b.categories[rec.Category]; !seen {
				b.catOrder = append(b.catOrder, rec.Category)
			}
			b.categories[rec.Category]++
		}
	}

	if len(order) == 0 {
		return nil
	}

	rows := make([]ItemRow, 0, len(order))
	for _, item := range order {
		b := buckets[item]
		row := ItemRow{
			Item:    item,
			Revenue: b.revenue,
			Units:   b.units,
		}
		if b.units != 0 {
			row.AvgUnitPrice = Num(b.revenue / b.units)
		}
		row.Category = firstMode(b.categories, b.catOrder)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})

	if len(rows) > n {
		rows = rows[:n]
	}

	e.logger.DebugContext(ctx, "item ranking computed",
		slog.Int("returned", len(rows)),
		slog.Int("requested", n))

	return rows
}

// MonthlyTrend resamples dated rows into calendar month-end buckets, summing
// revenue and units and counting transactions. Output is strictly
// chronological with one row per month that saw at least one transaction;
// gaps are not zero-filled. Returns nil when dates are unavailable.
func (e *Engine) MonthlyTrend(ctx context.Context, t *NormalizedTable) []TrendPoint {
	if !t.Caps.HasDate || len(t.Records) == 0 {
		return nil
	}

	buckets := make(map[time.Time]*TrendPoint)

	for _, rec := range t.Records {
		if !rec.HasDate {
			continue
		}
		key := monthEnd(rec.Date)
		p, ok := buckets[key]
		if !ok {
			p = &TrendPoint{Month: key}
			buckets[key] = p
		}
		p.Transactions++
		if rec.Total.Valid {
			p.Revenue += rec.Total.Value
		}
		if rec.Quantity.Valid {
			p.Units += rec.Quantity.Value
		}
	}

	if len(buckets) == 0 {
		return nil
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Month.Before(points[j].Month)
	})

	e.logger.DebugContext(ctx, "monthly trend computed",
		slog.Int("buckets", len(points)))

	return points
}

// CategoryDistribution counts rows per category label, sorted descending by
// count with a stable first-encountered tie-break. Feeds the pie chart.
// Returns nil when no Category column is mapped.
func (e *Engine) CategoryDistribution(ctx context.Context, t *NormalizedTable) []DistributionEntry {
	if !t.Caps.HasCategory || len(t.Records) == 0 {
		return nil
	}

	var order []string
	counts := make(map[string]int)

	for _, rec := range t.Records {
		if rec.Category == "" {
			continue
		}
		if _, seen := counts[rec.Category]; !seen {
			order = append(order, rec.Category)
		}
		counts[rec.Category]++
	}

	if len(order) == 0 {
		return nil
	}

	entries := make([]DistributionEntry, 0, len(order))
	for _, label := range order {
		entries = append(entries, DistributionEntry{Label: label, Count: counts[label]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}

// firstMode returns the most frequent label, breaking ties in favor of the
// first-encountered one
func firstMode(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, label := range order {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}

// monthEnd buckets a timestamp into the last calendar day of its month.
// This bucketing rule is relied on for trend reproducibility.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// percentage computes value/total*100 rounded to two decimals, missing when
// the denominator is zero. Rounding happens after aggregation so per-group
// rounding error does not compound.
func percentage(value, total float64) Numeric {
	if total == 0 {
		return Numeric{}
	}
	return Num(round2(value / total * 100))
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
