package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesight/internal/analysis"
	"salesight/internal/chart"
	"salesight/internal/config"
)

func testAssembler() *Assembler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAssembler(logger, chart.NewRenderer(logger, config.Default().Report))
}

func fullInput() Input {
	return Input{
		Title: "January Sales",
		Stats: &analysis.BasicStats{
			TotalRevenue:        190,
			AvgUnitPrice:        analysis.Num(17),
			MaxUnitPrice:        analysis.Num(40),
			MinUnitPrice:        analysis.Num(5),
			TotalQuantity:       11,
			AvgItemsPerRow:      analysis.Num(2.2),
			AvgTransactionValue: analysis.Num(38),
			UniqueItems:         4,
			Transactions:        5,
			HasCategories:       true,
			Categories:          3,
		},
		Categories: []analysis.CategoryRow{
			{Category: "electronics", Revenue: 140, AvgRevenue: 70, Orders: 2, Units: 4, RevenuePct: analysis.Num(73.68), OrdersPct: analysis.Num(40)},
			{Category: "tools", Revenue: 30, AvgRevenue: 15, Orders: 2, Units: 3, RevenuePct: analysis.Num(15.79), OrdersPct: analysis.Num(40)},
		},
		TopItems: []analysis.ItemRow{
			{Item: "gizmo", Revenue: 120, Units: 3, AvgUnitPrice: analysis.Num(40), Category: "electronics"},
			{Item: "widget", Revenue: 30, Units: 3, AvgUnitPrice: analysis.Num(10), Category: "tools"},
		},
		Trend: []analysis.TrendPoint{
			{Month: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Revenue: 40, Units: 3, Transactions: 2},
			{Month: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Revenue: 150, Units: 8, Transactions: 3},
		},
		Distribution: []analysis.DistributionEntry{
			{Label: "tools", Count: 2},
			{Label: "electronics", Count: 2},
			{Label: "toys", Count: 1},
		},
		Warnings: []analysis.Warning{
			{Code: analysis.WarnDateParse, Message: "1 date value could not be parsed", Count: 1},
		},
	}
}

func TestAssemble_SectionOrder(t *testing.T) {
	artifact := testAssembler().Assemble(context.Background(), fullInput())

	require.NotEmpty(t, artifact.ID)
	assert.Equal(t, "January Sales", artifact.Title)

	names := make([]string, 0, len(artifact.Sections))
	for _, s := range artifact.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		SectionOverview,
		SectionCategories,
		SectionTopItems,
		SectionTrend,
		SectionCategoryPie,
		SectionTrendChart,
		SectionDiagnostics,
	}, names)
}

func TestAssemble_OmitsAbsentAggregates(t *testing.T) {
	in := fullInput()
	in.Trend = nil
	in.Distribution = nil
	in.Warnings = nil

	artifact := testAssembler().Assemble(context.Background(), in)

	for _, s := range artifact.Sections {
		assert.NotEqual(t, SectionTrend, s.Name)
		assert.NotEqual(t, SectionTrendChart, s.Name)
		assert.NotEqual(t, SectionCategoryPie, s.Name)
		assert.NotEqual(t, SectionDiagnostics, s.Name)
	}
	assert.Nil(t, artifact.TableByName(SectionTrend))
}

func TestAssemble_MissingValuesNeverRenderAsZero(t *testing.T) {
	in := fullInput()
	in.Stats.AvgTransactionValue = analysis.Numeric{}
	in.TopItems[0].AvgUnitPrice = analysis.Numeric{}

	artifact := testAssembler().Assemble(context.Background(), in)

	overview := artifact.TableByName(SectionOverview)
	require.NotNil(t, overview)
	assert.Equal(t, []string{"Average Transaction Value", missingCell}, overview.Rows[6])

	top := artifact.TableByName(SectionTopItems)
	require.NotNil(t, top)
	assert.Equal(t, missingCell, top.Rows[0][3])
}

func TestAssemble_TopItemsWithoutCategoryColumn(t *testing.T) {
	in := fullInput()
	for i := range in.TopItems {
		in.TopItems[i].Category = ""
	}

	artifact := testAssembler().Assemble(context.Background(), in)

	top := artifact.TableByName(SectionTopItems)
	require.NotNil(t, top)
	assert.Equal(t, []string{"Product", "Revenue", "Units", "Average Price"}, top.Columns)
}

func TestAssemble_DiagnosticsCarriesWarnings(t *testing.T) {
	artifact := testAssembler().Assemble(context.Background(), fullInput())

	diag := artifact.TableByName(SectionDiagnostics)
	require.NotNil(t, diag)
	require.Len(t, diag.Rows, 1)
	assert.Equal(t, analysis.WarnDateParse, diag.Rows[0][0])
}

func TestAssemble_OverviewCarriesGeneratedAt(t *testing.T) {
	artifact := testAssembler().Assemble(context.Background(), fullInput())

	overview := artifact.TableByName(SectionOverview)
	require.NotNil(t, overview)

	last := overview.Rows[len(overview.Rows)-1]
	require.Equal(t, "Generated At", last[0])
	assert.Equal(t, artifact.GeneratedAt.Format("2006-01-02 15:04 MST"), last[1])
}

func TestWorkbookWriter_Write(t *testing.T) {
	artifact := testAssembler().Assemble(context.Background(), fullInput())

	var buf bytes.Buffer
	require.NoError(t, NewWorkbookWriter().Write(artifact, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, SectionOverview)
	assert.Contains(t, sheets, SectionCategories)
	assert.Contains(t, sheets, SectionTopItems)
	assert.Contains(t, sheets, SectionTrend)
	assert.Contains(t, sheets, chartsSheet)

	rows, err := f.GetRows(SectionCategories)
	require.NoError(t, err)
	require.Greater(t, len(rows), 2)
	assert.Equal(t, "electronics", rows[1][0])
	assert.Equal(t, "$140.00", rows[1][1])

	overview, err := f.GetRows(SectionOverview)
	require.NoError(t, err)
	require.NotEmpty(t, overview)
	assert.Equal(t, "Generated At", overview[len(overview)-1][0])
}

func TestWorkbookWriter_EmptyArtifact(t *testing.T) {
	artifact := &Artifact{ID: "test", Title: "Empty"}

	var buf bytes.Buffer
	require.NoError(t, NewWorkbookWriter().Write(artifact, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Empty"}, f.GetSheetList())
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Overview", "Overview"},
		{"Sales / By: Category?", "Sales  By Category"},
		{"", "Report"},
		{"a very long section name that exceeds the sheet limit", "a very long section name that e"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sheetName(tt.in))
	}
}
