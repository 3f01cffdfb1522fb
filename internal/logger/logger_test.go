package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad json line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogBridge_ContextFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info", Backend: "builtin", Component: "engine"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithCRSPair(ctx, "EPSG:4326", "EPSG:3857")

	log.DebugContext(ctx, "dropped")
	log.WarnContext(ctx, "redis bbox cache get failed", "err", errors.New("timeout"), "samples", 10)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("want 1 line (debug filtered), got %d: %s", len(lines), buf.String())
	}
	l := lines[0]
	for k, want := range map[string]any{
		"level":      "warn",
		"msg":        "redis bbox cache get failed",
		"request_id": "req-1",
		"crs_from":   "EPSG:4326",
		"crs_to":     "EPSG:3857",
		"backend":    "builtin",
		"component":  "engine",
		"err":        "timeout",
		"samples":    float64(10),
	} {
		if l[k] != want {
			t.Fatalf("%s=%v want %v (line %v)", k, l[k], want, l)
		}
	}
}

func TestWithAttrsDoesNotLeakBetweenChildren(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug"}, &buf)
	root := NewSlog(&zl).With("a", 1)
	left := root.With("left", true)
	right := root.With("right", true)

	left.Info("l")
	right.Info("r")
	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("lines=%d", len(lines))
	}
	if _, ok := lines[1]["left"]; ok {
		t.Fatalf("attrs leaked between siblings: %v", lines[1])
	}
}

func TestRequestIDGenerated(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q", id)
	}
}
