// Package router holds the HTTP handlers of the CRS service.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
	"github.com/mohammed-shakir/crs-cache/internal/crs/bbox"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/registry"
	"github.com/mohammed-shakir/crs-cache/internal/epsg"
	mylog "github.com/mohammed-shakir/crs-cache/internal/logger"
)

// API is the part of the engine the handlers serve.
type API interface {
	Keys() []string
	Resolve(name string) (*registry.Entry, error)
	Proj4(name string) (string, error)
	TransformPoint3D(from, to string, p model.Point3D) (model.Point3D, error)
	ReprojectBBox(ctx context.Context, bb model.BBox, to string) (model.BBox, error)
	EPSG(code int) (epsg.Record, bool)
	BBox(code int) epsg.BBox
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Status maps an error to the HTTP status reported to clients.
func Status(err error) int {
	switch {
	case errors.Is(err, crserr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crserr.ErrPointTransform),
		errors.Is(err, crserr.ErrGeometryTransform),
		errors.Is(err, crserr.ErrTransformationConstruction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, bbox.ErrInvalid),
		errors.Is(err, crserr.ErrInvalidDefinition),
		errors.Is(err, crserr.ErrAttributeMissing),
		errors.Is(err, crserr.ErrAttributeTypeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	code := Status(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type crsSummary struct {
	Names []string `json:"crs"`
}

type crsDetail struct {
	Name       string         `json:"name"`
	SwapCoord  bool           `json:"swapCoord"`
	Regex      string         `json:"regex,omitempty"`
	Proj4      string         `json:"proj4,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

func ListCRS(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, crsSummary{Names: api.Keys()})
	}
}

// GetCRS describes one coordinate system. The name may be any alias that
// resolves, percent-encoded when needed.
func GetCRS(logger *slog.Logger, api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if r.URL.RawPath != "" {
			// chi matched against the escaped path
			var err error
			if name, err = url.PathUnescape(name); err != nil {
				writeError(logger, w, r, badRequest("name: %v", err))
				return
			}
		}
		ent, err := api.Resolve(name)
		if err != nil {
			writeError(logger, w, r, err)
			return
		}
		out := crsDetail{
			Name:       ent.Name(),
			SwapCoord:  ent.SwapCoordinates(),
			Attributes: ent.Attributes().Snapshot(),
		}
		if re := ent.Regex(); re != nil {
			out.Regex = re.String()
		}
		// not every backend can export every definition
		if p4, err := api.Proj4(ent.Name()); err == nil {
			out.Proj4 = p4
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type pointResponse struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Z    *float64 `json:"z,omitempty"`
}

// TransformPoint serves /transform?from=&to=&x=&y=[&z=].
func TransformPoint(logger *slog.Logger, api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, to, err := crsPair(q.Get("from"), q.Get("to"))
		if err != nil {
			writeError(logger, w, r, err)
			return
		}
		var p model.Point3D
		if p.X, err = parseFloat("x", q.Get("x")); err != nil {
			writeError(logger, w, r, err)
			return
		}
		if p.Y, err = parseFloat("y", q.Get("y")); err != nil {
			writeError(logger, w, r, err)
			return
		}
		hasZ := strings.TrimSpace(q.Get("z")) != ""
		if hasZ {
			if p.Z, err = parseFloat("z", q.Get("z")); err != nil {
				writeError(logger, w, r, err)
				return
			}
		}

		out, err := api.TransformPoint3D(from, to, p)
		if err != nil {
			logger.DebugContext(mylog.WithCRSPair(r.Context(), from, to), "point transform failed", "err", err)
			writeError(logger, w, r, err)
			return
		}
		resp := pointResponse{From: from, To: to, X: out.X, Y: out.Y}
		if hasZ {
			resp.Z = &out.Z
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type bboxResponse struct {
	BBox [4]float64 `json:"bbox"`
	CRS  string     `json:"crs"`
}

// ReprojectBBox serves /bbox?bbox=x1,y1,x2,y2,CRS&to=CRS.
func ReprojectBBox(logger *slog.Logger, api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		bb, err := ParseBBox(q.Get("bbox"))
		if err != nil {
			writeError(logger, w, r, err)
			return
		}
		to := strings.TrimSpace(q.Get("to"))
		if to == "" {
			writeError(logger, w, r, badRequest("missing required parameter: to"))
			return
		}

		out, err := api.ReprojectBBox(r.Context(), bb, to)
		if err != nil {
			writeError(logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bboxResponse{BBox: [4]float64{out.X1, out.Y1, out.X2, out.Y2}, CRS: out.CRS})
	}
}

type epsgResponse struct {
	Code       int       `json:"code"`
	Known      bool      `json:"known"`
	Name       string    `json:"name,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	Source     string    `json:"source,omitempty"`
	Deprecated bool      `json:"deprecated,omitempty"`
	BBox       epsg.BBox `json:"bbox"`
}

// EPSG serves /epsg/{code}. Unknown codes answer with the world bbox.
func EPSG(logger *slog.Logger, api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(chi.URLParam(r, "code"))
		if err != nil || code <= 0 {
			writeError(logger, w, r, badRequest("invalid epsg code %q", chi.URLParam(r, "code")))
			return
		}
		out := epsgResponse{Code: code, BBox: api.BBox(code)}
		if rec, ok := api.EPSG(code); ok {
			out.Known = true
			out.Name = rec.Name
			out.Scope = rec.Scope
			out.Source = rec.Source
			out.Deprecated = rec.Deprecated
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func crsPair(from, to string) (string, string, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" {
		return "", "", badRequest("missing required parameter: from")
	}
	if to == "" {
		return "", "", badRequest("missing required parameter: to")
	}
	return from, to, nil
}

// ParseBBox parses "x1,y1,x2,y2,CRS". The CRS may itself contain commas
// (WKT or PROJ.4 text), so everything after the fourth comma is the name.
func ParseBBox(raw string) (model.BBox, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.BBox{}, badRequest("missing required parameter: bbox")
	}
	parts := strings.SplitN(raw, ",", 5)
	if len(parts) != 5 {
		return model.BBox{}, badRequest("bbox: expected x1,y1,x2,y2,CRS")
	}
	var vals [4]float64
	for i, n := range [...]string{"x1", "y1", "x2", "y2"} {
		v, err := parseFloat(n, parts[i])
		if err != nil {
			return model.BBox{}, err
		}
		vals[i] = v
	}
	crs := strings.TrimSpace(parts[4])
	if crs == "" {
		return model.BBox{}, badRequest("bbox: missing CRS")
	}
	bb := model.BBox{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3], CRS: crs}
	if !bb.Valid() {
		return model.BBox{}, badRequest("bbox: coordinates must satisfy x2>=x1 and y2>=y1")
	}
	return bb, nil
}

func parseFloat(name, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, badRequest("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, badRequest("%s: parse float: %v", name, err)
	}
	return f, nil
}
