// Package app wires configuration, logging, metrics, services and HTTP
// transport into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"salesight/internal/config"
	apperrors "salesight/internal/errors"
	"salesight/internal/infrastructure"
	"salesight/internal/services"
	transport "salesight/internal/transport/http"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Application holds every long-lived component of the service.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *infrastructure.Metrics
	Server  *http.Server
}

// NewApplication builds the full component graph from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: infrastructure.NewMetrics(),
	}

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

func (a *Application) router() chi.Router {
	reportService := services.NewReportService(a.Logger, a.Metrics, a.Config)
	errorHandler := apperrors.NewErrorHandler(a.Logger)
	reportHandler := transport.NewReportHandler(reportService, a.Logger, errorHandler, a.Config.Limits)
	healthHandler := transport.NewHealthHandler(a.Logger, Version)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.Metrics.Middleware)
	r.Use(chimiddleware.Timeout(a.Config.Server.WriteTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
		r.Mount("/", reportHandler.Routes())
	})
	r.Handle("/metrics", a.Metrics.Handler())

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the process receives SIGINT/SIGTERM, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server starting",
			slog.String("addr", a.Server.Addr),
			slog.String("version", Version))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.Logger.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	a.Logger.Info("server stopped")
	return nil
}
