package registry

import (
	"errors"
	"strings"
	"sync"

	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

type fakeRef struct {
	def    string
	closed bool
}

func (r *fakeRef) Proj4() (string, error) { return "+fake=" + r.def, nil }
func (r *fakeRef) Close()                 { r.closed = true }

type fakeTransformer struct{}

func (fakeTransformer) Transform(x, y, z float64) (float64, float64, float64, error) {
	return x * 2, y * 2, z, nil
}
func (fakeTransformer) TransformFlat([]float64, int) error { return nil }
func (fakeTransformer) Close()                             {}

// fakeBackend accepts any EPSG code except 9999, proj4 strings starting
// with '+' and any WKT; transformers to "+nope" are refused.
type fakeBackend struct {
	mu     sync.Mutex
	parsed int
	wkt    []string
	refs   []*fakeRef
}

func (b *fakeBackend) newRef(def string) *fakeRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parsed++
	r := &fakeRef{def: def}
	b.refs = append(b.refs, r)
	return r
}

func (b *fakeBackend) FromEPSG(code int) (spatial.SpatialRef, error) {
	if code == 9999 {
		return nil, spatial.ErrUnsupported
	}
	return b.newRef("epsg"), nil
}

func (b *fakeBackend) FromProj4(def string) (spatial.SpatialRef, error) {
	if !strings.HasPrefix(def, "+") {
		return nil, errors.New("bad proj4")
	}
	return b.newRef(def), nil
}

func (b *fakeBackend) FromWKT(def string) (spatial.SpatialRef, error) {
	b.mu.Lock()
	b.wkt = append(b.wkt, def)
	b.mu.Unlock()
	return b.newRef(def), nil
}

func (b *fakeBackend) NewTransformer(src, dst spatial.SpatialRef) (spatial.Transformer, error) {
	if dst.(*fakeRef).def == "+nope" {
		return nil, errors.New("no path")
	}
	return fakeTransformer{}, nil
}
