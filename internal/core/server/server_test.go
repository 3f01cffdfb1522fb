package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/crs-cache/internal/core/config"
	"github.com/mohammed-shakir/crs-cache/internal/core/observability"
	"github.com/mohammed-shakir/crs-cache/internal/crs/builtin"
	"github.com/mohammed-shakir/crs-cache/internal/crsconf"
	"github.com/mohammed-shakir/crs-cache/internal/engine"
)

func newEngine(t *testing.T, register bool) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Options{Backend: builtin.New()})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	if register {
		defs, err := crsconf.Builtin()
		if err != nil {
			t.Fatalf("Builtin: %v", err)
		}
		if err := crsconf.Register(eng, defs); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return eng
}

func TestNewRouter_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(logger, newEngine(t, true), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	for target, want := range map[string]int{
		"/healthz":     http.StatusOK,
		"/readyz":      http.StatusOK,
		"/crs":         http.StatusOK,
		"/crs/CRS:84":  http.StatusOK,
		"/epsg/3857":   http.StatusOK,
		"/unknown":     http.StatusNotFound,
		"/transform?x": http.StatusBadRequest,
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != want {
			t.Fatalf("%s: code=%d want %d body=%s", target, rr.Code, want, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `route="/crs/{name}"`) {
		t.Fatalf("metrics code=%d body missing route label", rr.Code)
	}
}

func TestNewRouter_NotReadyAndNoMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(logger, newEngine(t, false), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz code=%d want 503", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("metrics code=%d want 404", rr.Code)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.Config{Addr: "127.0.0.1:0"}, logger, newEngine(t, true), nil)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := Run(context.Background(), config.Config{Addr: "256.0.0.1:bad"}, logger, newEngine(t, true), nil)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("want listen error, got %v", err)
	}
}
