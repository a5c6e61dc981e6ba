// Package services holds the orchestration layer between transport and the
// analysis pipeline. Services own no request state: every invocation builds
// a fresh table, normalized view and artifact, so concurrent uploads never
// share mutable data.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"salesight/internal/analysis"
	"salesight/internal/chart"
	"salesight/internal/config"
	apperrors "salesight/internal/errors"
	"salesight/internal/infrastructure"
	"salesight/internal/ingest"
	"salesight/internal/report"
)

// ReportRequest is one report generation job: a spreadsheet stream plus the
// user's column mapping.
type ReportRequest struct {
	Filename string
	Source   io.Reader
	Mapping  analysis.Mapping
	Title    string
}

// ReportService runs the full pipeline: read, map, normalize, aggregate,
// render, assemble.
type ReportService struct {
	logger     *slog.Logger
	metrics    *infrastructure.Metrics
	xlsxReader *ingest.XLSXReader
	csvReader  *ingest.CSVReader
	normalizer *analysis.Normalizer
	engine     *analysis.Engine
	assembler  *report.Assembler
	workbook   *report.WorkbookWriter
	topN       int
}

func NewReportService(logger *slog.Logger, metrics *infrastructure.Metrics, cfg *config.Config) *ReportService {
	return &ReportService{
		logger:     logger,
		metrics:    metrics,
		xlsxReader: ingest.NewXLSXReader(logger, cfg.Limits.MaxRows),
		csvReader:  ingest.NewCSVReader(logger, cfg.Limits.MaxRows),
		normalizer: analysis.NewNormalizer(logger),
		engine:     analysis.NewEngine(logger),
		assembler:  report.NewAssembler(logger, chart.NewRenderer(logger, cfg.Report)),
		workbook:   report.NewWorkbookWriter(),
		topN:       cfg.Report.TopN,
	}
}

// Columns reads just enough of an upload to return its header row, for the
// mapping UI to offer as choices.
func (s *ReportService) Columns(ctx context.Context, filename string, src io.Reader) ([]string, error) {
	table, err := s.read(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	return table.Columns, nil
}

// GenerateReport runs the pipeline and returns the assembled artifact.
func (s *ReportService) GenerateReport(ctx context.Context, req ReportRequest) (*report.Artifact, error) {
	table, err := s.read(ctx, req.Filename, req.Source)
	if err != nil {
		s.metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	fm, err := analysis.BuildFieldMap(table, req.Mapping)
	if err != nil {
		s.metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, wrapAnalysisError(err)
	}

	nt, err := s.normalizer.Normalize(ctx, table, fm)
	if err != nil {
		s.metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, wrapAnalysisError(err)
	}
	s.metrics.RowsProcessed.Add(float64(len(nt.Records)))

	title := req.Title
	if title == "" {
		title = defaultTitle(req.Filename)
	}

	artifact := s.assembler.Assemble(ctx, report.Input{
		Title:        title,
		Stats:        s.engine.BasicStatistics(ctx, nt),
		Categories:   s.engine.GroupByCategory(ctx, nt),
		TopItems:     s.engine.TopItems(ctx, nt, s.topN),
		Trend:        s.engine.MonthlyTrend(ctx, nt),
		Distribution: s.engine.CategoryDistribution(ctx, nt),
		Warnings:     nt.Warnings,
	})

	s.metrics.ReportsTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "report generated",
		"report_id", artifact.ID,
		"filename", req.Filename,
		"rows", len(nt.Records),
		"sections", len(artifact.Sections))

	return artifact, nil
}

// GenerateWorkbook runs the pipeline and serializes the artifact to an xlsx
// workbook on out. The artifact is returned alongside so callers can expose
// its id and diagnostics.
func (s *ReportService) GenerateWorkbook(ctx context.Context, req ReportRequest, out io.Writer) (*report.Artifact, error) {
	artifact, err := s.GenerateReport(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.workbook.Write(artifact, out); err != nil {
		s.metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	return artifact, nil
}

func (s *ReportService) read(ctx context.Context, filename string, src io.Reader) (*ingest.RawTable, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return s.xlsxReader.Read(ctx, src)
	case ".csv":
		return s.csvReader.Read(ctx, src)
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported file type %q: expected .xlsx, .xlsm or .csv", filepath.Ext(filename)))
	}
}

// wrapAnalysisError lifts the pipeline's typed errors into the application
// error taxonomy: mapping mistakes are the user's to fix (400), an
// unusable mapped column is a content problem (422).
func wrapAnalysisError(err error) error {
	var (
		missing   *analysis.MissingFieldError
		duplicate *analysis.DuplicateMappingError
		unknown   *analysis.UnknownColumnError
		unusable  *analysis.UnusableColumnError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &duplicate), errors.As(err, &unknown):
		return apperrors.NewMappingError(err.Error(), err)
	case errors.As(err, &unusable):
		return apperrors.NewParsingError(err.Error(), err)
	default:
		return err
	}
}

func defaultTitle(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		return "Sales Report"
	}
	return base
}
