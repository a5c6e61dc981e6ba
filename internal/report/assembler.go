package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salesight/internal/analysis"
	"salesight/internal/chart"
)

// Section names are stable identifiers; sinks and tests key on them.
const (
	SectionOverview    = "Overview"
	SectionCategories  = "Sales by Category"
	SectionTopItems    = "Top Products"
	SectionTrend       = "Monthly Trend"
	SectionCategoryPie = "Category Distribution"
	SectionTrendChart  = "Monthly Revenue Chart"
	SectionDiagnostics = "Diagnostics"
)

// Input carries every aggregate a report can include. Nil or empty
// aggregates mean the upstream capability was absent and the matching
// section is omitted from the artifact.
type Input struct {
	Title        string
	Stats        *analysis.BasicStats
	Categories   []analysis.CategoryRow
	TopItems     []analysis.ItemRow
	Trend        []analysis.TrendPoint
	Distribution []analysis.DistributionEntry
	Warnings     []analysis.Warning
}

// Assembler builds artifacts in a fixed section order: overview first,
// then grouping, ranking and trend tables, then chart images, then
// diagnostics.
type Assembler struct {
	logger   *slog.Logger
	renderer *chart.Renderer
}

func NewAssembler(logger *slog.Logger, renderer *chart.Renderer) *Assembler {
	return &Assembler{logger: logger, renderer: renderer}
}

func (a *Assembler) Assemble(ctx context.Context, in Input) *Artifact {
	artifact := &Artifact{
		ID:          uuid.NewString(),
		Title:       in.Title,
		GeneratedAt: time.Now().UTC(),
	}

	if in.Stats != nil {
		artifact.Sections = append(artifact.Sections, tableSection(SectionOverview, overviewTable(in.Stats, artifact.GeneratedAt)))
	}
	if len(in.Categories) > 0 {
		artifact.Sections = append(artifact.Sections, tableSection(SectionCategories, categoryTable(in.Categories)))
	}
	if len(in.TopItems) > 0 {
		artifact.Sections = append(artifact.Sections, tableSection(SectionTopItems, topItemsTable(in.TopItems)))
	}
	if len(in.Trend) > 0 {
		artifact.Sections = append(artifact.Sections, tableSection(SectionTrend, trendTable(in.Trend)))
	}

	warnings := in.Warnings
	if len(in.Distribution) > 0 {
		if png, err := a.renderer.CategoryDistribution(ctx, in.Distribution, SectionCategoryPie); err != nil {
			a.logger.WarnContext(ctx, "category chart skipped", "error", err)
			warnings = append(warnings, analysis.Warning{
				Code:    analysis.WarnChartRender,
				Message: "category distribution chart could not be rendered",
				Count:   1,
			})
		} else {
			artifact.Sections = append(artifact.Sections, imageSection(SectionCategoryPie, png))
		}
	}
	if len(in.Trend) > 0 {
		if png, err := a.renderer.TimeSeries(ctx, in.Trend, SectionTrendChart); err != nil {
			a.logger.WarnContext(ctx, "trend chart skipped", "error", err)
			warnings = append(warnings, analysis.Warning{
				Code:    analysis.WarnChartRender,
				Message: "monthly revenue chart could not be rendered",
				Count:   1,
			})
		} else {
			artifact.Sections = append(artifact.Sections, imageSection(SectionTrendChart, png))
		}
	}

	if len(warnings) > 0 {
		artifact.Sections = append(artifact.Sections, tableSection(SectionDiagnostics, diagnosticsTable(warnings)))
	}

	a.logger.InfoContext(ctx, "report assembled",
		"report_id", artifact.ID,
		"sections", len(artifact.Sections),
		"warnings", len(warnings))

	return artifact
}

func tableSection(name string, t *Table) Section {
	return Section{Name: name, Kind: KindTable, Table: t}
}

func imageSection(name string, png []byte) Section {
	return Section{Name: name, Kind: KindImage, Image: png}
}

func overviewTable(s *analysis.BasicStats, generatedAt time.Time) *Table {
	t := &Table{Columns: []string{"Metric", "Value"}}
	t.Rows = append(t.Rows,
		[]string{"Total Revenue", formatCurrency(s.TotalRevenue)},
		[]string{"Average Unit Price", formatNumericCurrency(s.AvgUnitPrice)},
		[]string{"Maximum Unit Price", formatNumericCurrency(s.MaxUnitPrice)},
		[]string{"Minimum Unit Price", formatNumericCurrency(s.MinUnitPrice)},
		[]string{"Total Items Sold", formatFloat(s.TotalQuantity)},
		[]string{"Average Items per Transaction", formatNumericFloat(s.AvgItemsPerRow)},
		[]string{"Average Transaction Value", formatNumericCurrency(s.AvgTransactionValue)},
		[]string{"Unique Products", formatInt(s.UniqueItems)},
		[]string{"Transactions", formatInt(s.Transactions)},
	)
	if s.HasCategories {
		t.Rows = append(t.Rows, []string{"Categories", formatInt(s.Categories)})
	}
	t.Rows = append(t.Rows, []string{"Generated At", generatedAt.Format("2006-01-02 15:04 MST")})
	return t
}

func categoryTable(rows []analysis.CategoryRow) *Table {
	t := &Table{Columns: []string{
		"Category", "Revenue", "Average Revenue", "Orders", "Units", "Sales (%)", "Orders (%)",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Category,
			formatCurrency(r.Revenue),
			formatCurrency(r.AvgRevenue),
			formatInt(r.Orders),
			formatFloat(r.Units),
			formatNumericPercent(r.RevenuePct),
			formatNumericPercent(r.OrdersPct),
		})
	}
	return t
}

func topItemsTable(rows []analysis.ItemRow) *Table {
	hasCategory := false
	for _, r := range rows {
		if r.Category != "" {
			hasCategory = true
			break
		}
	}

	columns := []string{"Product", "Revenue", "Units", "Average Price"}
	if hasCategory {
		columns = append(columns, "Category")
	}

	t := &Table{Columns: columns}
	for _, r := range rows {
		row := []string{
			r.Item,
			formatCurrency(r.Revenue),
			formatFloat(r.Units),
			formatNumericCurrency(r.AvgUnitPrice),
		}
		if hasCategory {
			row = append(row, r.Category)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func trendTable(points []analysis.TrendPoint) *Table {
	t := &Table{Columns: []string{"Month", "Revenue", "Units", "Transactions"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{
			p.Month.Format("2006-01-02"),
			formatCurrency(p.Revenue),
			formatFloat(p.Units),
			formatInt(p.Transactions),
		})
	}
	return t
}

func diagnosticsTable(warnings []analysis.Warning) *Table {
	t := &Table{Columns: []string{"Code", "Message", "Occurrences"}}
	for _, w := range warnings {
		t.Rows = append(t.Rows, []string{w.Code, w.Message, formatInt(w.Count)})
	}
	return t
}
