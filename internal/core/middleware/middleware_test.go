package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/crs-cache/internal/core/observability"
)

func TestLogging_RequestID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := Logging(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/crs", nil))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing generated request id")
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Fatalf("log=%s", buf.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/crs", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("request id=%q want abc", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("preflight must not reach the handler")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/crs", nil))
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("code=%d headers=%v", rr.Code, rr.Header())
	}
}

func TestMetrics_RoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/crs/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/crs/EPSG:1", nil))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/crs/{name}" && labels["status"] == "404" && m.GetCounter().GetValue() >= 1 {
				return
			}
		}
	}
	t.Fatalf("no http_requests_total sample for the route pattern")
}
