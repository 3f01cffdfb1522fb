package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/crs-cache/internal/core/config"
	"github.com/mohammed-shakir/crs-cache/internal/core/observability"
	"github.com/mohammed-shakir/crs-cache/internal/core/server"
	"github.com/mohammed-shakir/crs-cache/internal/crs/nativelib"
	"github.com/mohammed-shakir/crs-cache/internal/engine"
	"github.com/mohammed-shakir/crs-cache/internal/logger"
	"github.com/mohammed-shakir/crs-cache/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Backend:   nativelib.Name(),
		Component: "crsd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)
	slog.SetDefault(appLog)

	appLog.Info("starting crsd",
		"addr", cfg.Addr,
		"version", Version,
		"backend", nativelib.Name(),
		"crs_dir", cfg.CRSDefinitionDir,
		"redis", cfg.RedisAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var p *metrics.Provider
	if cfg.MetricsEnabled {
		p = metrics.New(metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
			Backend:   nativelib.Name(),
		})
		observability.Init(p.Registerer(), true)
	} else {
		observability.Init(nil, false)
	}

	eng, err := engine.FromConfig(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("engine setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := eng.Close(); err != nil {
			appLog.Warn("engine close", "err", err)
		}
	}()

	var mainMetrics http.Handler
	if p != nil {
		p.Watch(metrics.Inventory{
			Entries:      eng.Registry().Len,
			EPSGRecords:  eng.EPSGTable().Len,
			PoolCapacity: eng.Pool().Capacity,
		})

		if cfg.MetricsAddr == "" {
			mainMetrics = p.Handler()
		} else {
			go serveMetrics(ctx, appLog, cfg.MetricsAddr, cfg.MetricsPath, p.Handler())
		}
	}

	if err := server.Run(ctx, cfg, appLog, eng, mainMetrics); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr, path string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(path, h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown", "err", err)
		}
	}()

	log.Info("metrics listen", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server exited", "err", err)
	}
}
