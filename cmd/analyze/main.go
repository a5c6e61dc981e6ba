// Command analyze runs the report pipeline over a local spreadsheet and
// writes the workbook next to it, without starting the web service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salesight/internal/analysis"
	"salesight/internal/config"
	"salesight/internal/infrastructure"
	"salesight/internal/services"
)

func main() {
	var (
		inPath   = flag.String("in", "", "input spreadsheet (.xlsx, .xlsm or .csv)")
		outPath  = flag.String("out", "", "output workbook path (default <in>_report.xlsx)")
		item     = flag.String("item", "", "column holding the item/product name (required)")
		price    = flag.String("price", "", "column holding the unit price (required)")
		quantity = flag.String("quantity", "", "column holding the quantity (optional)")
		date     = flag.String("date", "", "column holding the transaction date (optional)")
		category = flag.String("category", "", "column holding the category (optional)")
		title    = flag.String("title", "", "report title (default input base name)")
		topN     = flag.Int("top", 0, "number of top products to rank (default from config)")
	)
	flag.Parse()

	if *inPath == "" || *item == "" || *price == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -in sales.xlsx -item <column> -price <column> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}
	if *topN > 0 {
		cfg.Report.TopN = *topN
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fatal("init logger", err)
	}

	in, err := os.Open(*inPath)
	if err != nil {
		fatal("open input", err)
	}
	defer in.Close()

	dest := *outPath
	if dest == "" {
		base := strings.TrimSuffix(*inPath, filepath.Ext(*inPath))
		dest = base + "_report.xlsx"
	}
	out, err := os.Create(dest)
	if err != nil {
		fatal("create output", err)
	}
	defer out.Close()

	service := services.NewReportService(logger, infrastructure.NewMetrics(), cfg)
	artifact, err := service.GenerateWorkbook(context.Background(), services.ReportRequest{
		Filename: filepath.Base(*inPath),
		Source:   in,
		Mapping: analysis.Mapping{
			Item:     *item,
			Price:    *price,
			Quantity: *quantity,
			Date:     *date,
			Category: *category,
		},
		Title: *title,
	}, out)
	if err != nil {
		os.Remove(dest)
		fatal("generate report", err)
	}

	fmt.Printf("report %s written to %s (%d sections)\n", artifact.ID, dest, len(artifact.Sections))
}

func fatal(stage string, err error) {
	slog.Error(stage, slog.String("error", err.Error()))
	os.Exit(1)
}
