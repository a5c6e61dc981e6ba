package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"salesight/internal/analysis"
	"salesight/internal/config"
	apierrors "salesight/internal/errors"
	"salesight/internal/services"
)

const uploadField = "file"

// ReportHandler serves the upload-and-analyze endpoints.
type ReportHandler struct {
	service      *services.ReportService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
	limiter      *rate.Limiter
	maxUpload    int64
}

func NewReportHandler(service *services.ReportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, limits config.LimitsConfig) *ReportHandler {
	return &ReportHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "report")),
		errorHandler: errorHandler,
		validate:     validator.New(),
		limiter:      rate.NewLimiter(rate.Limit(limits.RateLimitRPS), limits.RateLimitBurst),
		maxUpload:    limits.MaxUploadBytes,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.rateLimit)

	r.Post("/columns", h.Columns)
	r.Post("/reports", h.GenerateReport)

	return r
}

func (h *ReportHandler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.errorHandler.HandleError(w, r, apierrors.ErrRateLimitExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ColumnsResponse lists the column headers found in an upload.
type ColumnsResponse struct {
	Success bool     `json:"success"`
	Columns []string `json:"columns"`
}

// Columns handles POST /api/columns: returns the header row of an uploaded
// spreadsheet so the client can offer mapping choices.
func (h *ReportHandler) Columns(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.openUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	columns, err := h.service.Columns(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, ColumnsResponse{Success: true, Columns: columns})
}

// GenerateReport handles POST /api/reports: runs the analysis pipeline over
// an uploaded spreadsheet and streams back an xlsx workbook attachment.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.openUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	mapping := analysis.Mapping{
		Item:     r.FormValue("item"),
		Price:    r.FormValue("price"),
		Quantity: r.FormValue("quantity"),
		Date:     r.FormValue("date"),
		Category: r.FormValue("category"),
	}
	if err := h.validate.Struct(mapping); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			field := invalid[0].Field()
			h.errorHandler.HandleError(w, r,
				apierrors.ErrValidation(field, fmt.Sprintf("%s column mapping is required", field)))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	req := services.ReportRequest{
		Filename: header.Filename,
		Source:   file,
		Mapping:  mapping,
		Title:    r.FormValue("title"),
	}

	// Buffer the workbook so a pipeline failure can still produce a clean
	// JSON error response instead of a truncated download.
	var workbook bytes.Buffer
	artifact, err := h.service.GenerateWorkbook(r.Context(), req, &workbook)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(header.Filename)))
	w.Header().Set("X-Report-ID", artifact.ID)
	if _, err := workbook.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "report download interrupted",
			slog.String("report_id", artifact.ID),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "report downloaded",
		slog.String("report_id", artifact.ID),
		slog.String("filename", header.Filename))
}

// downloadName derives the attachment name from the upload's base name.
func downloadName(uploaded string) string {
	base := strings.TrimSuffix(filepath.Base(uploaded), filepath.Ext(uploaded))
	if base == "" || base == "." {
		return "report.xlsx"
	}
	return base + "_report.xlsx"
}

// openUpload parses the multipart form within the configured size limit and
// returns the uploaded file part.
func (h *ReportHandler) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, apierrors.ErrPayloadTooLarge
		}
		return nil, nil, apierrors.InvalidRequestWithError(err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, nil, apierrors.ErrValidation(uploadField, "A spreadsheet upload is required")
	}
	return file, header, nil
}
