//go:build cgo && !builtin

// Package projlib implements the spatial backend on top of the PROJ
// library. Every SpatialRef and Transformer owns its own PROJ context so
// that handles can be used from different goroutines.
package projlib

import (
	"errors"
	"fmt"
	"strings"

	"github.com/twpayne/go-proj/v10"

	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

type ref struct {
	ctx *proj.Context
	pj  *proj.PJ
	def string
}

func newRef(def string) (*ref, error) {
	ctx := proj.NewContext()
	pj, err := ctx.New(def)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}
	if !pj.IsCRS() {
		pj.Destroy()
		ctx.Destroy()
		return nil, fmt.Errorf("%q does not describe a coordinate reference system", def)
	}
	return &ref{ctx: ctx, pj: pj, def: def}, nil
}

func (r *ref) Proj4() (string, error) {
	if r.pj == nil {
		return "", errors.New("spatial reference closed")
	}
	if strings.HasPrefix(strings.TrimSpace(r.def), "+") {
		return r.def, nil
	}
	if d := strings.TrimSpace(r.pj.Info().Definition); d != "" {
		if !strings.HasPrefix(d, "+") {
			d = "+" + strings.ReplaceAll(d, " ", " +")
		}
		return d, nil
	}
	return "", fmt.Errorf("no PROJ.4 export for %q", r.def)
}

func (r *ref) Close() {
	if r.pj != nil {
		r.pj.Destroy()
		r.pj = nil
	}
	if r.ctx != nil {
		r.ctx.Destroy()
		r.ctx = nil
	}
}

func (b *Backend) FromEPSG(code int) (spatial.SpatialRef, error) {
	r, err := newRef(fmt.Sprintf("EPSG:%d", code))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Backend) FromProj4(def string) (spatial.SpatialRef, error) {
	def = strings.TrimSpace(def)
	if !strings.HasPrefix(def, "+") {
		return nil, fmt.Errorf("proj4 definition %q must start with '+'", def)
	}
	if !strings.Contains(def, "+type=crs") {
		def += " +type=crs"
	}
	r, err := newRef(def)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Backend) FromWKT(def string) (spatial.SpatialRef, error) {
	r, err := newRef(def)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Backend) NewTransformer(src, dst spatial.SpatialRef) (spatial.Transformer, error) {
	s, ok := src.(*ref)
	if !ok || s.pj == nil {
		return nil, fmt.Errorf("projlib: invalid source reference %T", src)
	}
	d, ok := dst.(*ref)
	if !ok || d.pj == nil {
		return nil, fmt.Errorf("projlib: invalid destination reference %T", dst)
	}
	ctx := proj.NewContext()
	// the source and target objects belong to other contexts, so they are
	// rebuilt here from their definitions
	sp, err := ctx.New(s.def)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}
	defer sp.Destroy()
	dp, err := ctx.New(d.def)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}
	defer dp.Destroy()

	pj, err := ctx.NewCRSToCRSFromPJ(sp, dp, nil, "")
	if err != nil {
		ctx.Destroy()
		return nil, err
	}
	return &transformer{ctx: ctx, pj: pj}, nil
}

type transformer struct {
	ctx *proj.Context
	pj  *proj.PJ
}

func (t *transformer) Transform(x, y, z float64) (float64, float64, float64, error) {
	c, err := t.pj.Forward(proj.NewCoord(x, y, z, 0))
	if err != nil {
		return 0, 0, 0, err
	}
	return c[0], c[1], c[2], nil
}

func (t *transformer) TransformFlat(flat []float64, stride int) error {
	zIndex := -1
	if stride >= 3 {
		zIndex = 2
	}
	return t.pj.ForwardFlatCoords(flat, stride, zIndex, -1)
}

func (t *transformer) Close() {
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
	if t.ctx != nil {
		t.ctx.Destroy()
		t.ctx = nil
	}
}
