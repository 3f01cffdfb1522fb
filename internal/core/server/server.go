package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/crs-cache/internal/core/config"
	"github.com/mohammed-shakir/crs-cache/internal/core/health"
	middleware "github.com/mohammed-shakir/crs-cache/internal/core/middleware"
	"github.com/mohammed-shakir/crs-cache/internal/core/router"
)

// Engine is what the server needs from the CRS engine.
type Engine interface {
	router.API
	health.Checker
}

// NewRouter builds the HTTP routes. metrics is mounted on /metrics when
// not nil.
func NewRouter(logger *slog.Logger, eng Engine, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(eng, 2*time.Second))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Get("/crs", router.ListCRS(eng))
	r.Get("/crs/{name}", router.GetCRS(logger, eng))
	r.Get("/transform", router.TransformPoint(logger, eng))
	r.Get("/bbox", router.ReprojectBBox(logger, eng))
	r.Get("/epsg/{code}", router.EPSG(logger, eng))
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, eng Engine, metrics http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(logger, eng, metrics),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
