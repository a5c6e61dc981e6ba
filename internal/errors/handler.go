package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler provides centralized error handling for HTTP surfaces
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError maps any error to a structured API response and renders it
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, NewErrorResponse(h.toAPIError(err)))
}

// toAPIError converts domain errors to API errors with appropriate status codes
func (h *ErrorHandler) toAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation:
			return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", appErr.Message, appErr.Context)
		case ErrTypeMapping:
			return NewWithDetails(http.StatusBadRequest, "MAPPING_FAILED", appErr.Message, appErr.Context)
		case ErrTypeParsing:
			return NewWithDetails(http.StatusUnprocessableEntity, "PARSING_FAILED", appErr.Message, appErr.Context)
		case ErrTypeNotFound:
			return NewWithDetails(http.StatusNotFound, "NOT_FOUND", appErr.Message, appErr.Context)
		case ErrTypeStorage, ErrTypeConfig:
			return New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", appErr.Message)
		}
	}

	return ErrInternalServer
}
