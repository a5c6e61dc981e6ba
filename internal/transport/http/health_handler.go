package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	logger    *slog.Logger
	version   string
	startedAt time.Time
}

func NewHealthHandler(logger *slog.Logger, version string) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(slog.String("handler", "health")),
		version:   version,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		"version": h.version,
	})
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "alive"})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"version": h.version})
}
