// Package transform applies coordinate transformations between two
// registered coordinate systems to points and geometries.
package transform

import (
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

// Transformation converts coordinates from SourceName to DestinationName.
// Implementations are not safe for concurrent use; Close must be called
// once the transformation is no longer needed.
type Transformation interface {
	SourceName() string
	DestinationName() string
	TransformPoint(p model.Point) (model.Point, error)
	TransformPoint3D(p model.Point3D) (model.Point3D, error)
	// TransformGeometry rewrites g in place. On error g is left untouched.
	TransformGeometry(g geom.T) error
	Close()
}

// Identity is the transformation from a coordinate system to itself.
type Identity struct {
	name string
}

func NewIdentity(name string) *Identity { return &Identity{name: name} }

func (t *Identity) SourceName() string                                      { return t.name }
func (t *Identity) DestinationName() string                                 { return t.name }
func (t *Identity) TransformPoint(p model.Point) (model.Point, error)       { return p, nil }
func (t *Identity) TransformPoint3D(p model.Point3D) (model.Point3D, error) { return p, nil }
func (t *Identity) TransformGeometry(geom.T) error                          { return nil }
func (t *Identity) Close()                                                  {}

// Real wraps a native transformer together with the axis swap flags of
// both endpoints, captured when the transformation is built.
type Real struct {
	from, to string
	swapSrc  bool
	swapDst  bool
	tr       spatial.Transformer
	release  func()
	once     sync.Once
}

// NewReal returns a transformation using tr. release runs exactly once on
// Close and decides what happens to tr (destroyed, or handed back to a pool).
func NewReal(from, to string, swapSrc, swapDst bool, tr spatial.Transformer, release func()) *Real {
	return &Real{from: from, to: to, swapSrc: swapSrc, swapDst: swapDst, tr: tr, release: release}
}

func (t *Real) SourceName() string      { return t.from }
func (t *Real) DestinationName() string { return t.to }

func (t *Real) TransformPoint(p model.Point) (model.Point, error) {
	x, y := p.X, p.Y
	if t.swapSrc {
		x, y = y, x
	}
	ox, oy, _, err := t.tr.Transform(x, y, 0)
	if err != nil {
		return model.Point{}, crserr.PointTransform(t.from, t.to, p.X, p.Y, err)
	}
	if t.swapDst {
		ox, oy = oy, ox
	}
	return model.Point{X: ox, Y: oy}, nil
}

func (t *Real) TransformPoint3D(p model.Point3D) (model.Point3D, error) {
	x, y := p.X, p.Y
	if t.swapSrc {
		x, y = y, x
	}
	ox, oy, oz, err := t.tr.Transform(x, y, p.Z)
	if err != nil {
		return model.Point3D{}, crserr.PointTransform(t.from, t.to, p.X, p.Y, err)
	}
	if t.swapDst {
		ox, oy = oy, ox
	}
	return model.Point3D{X: ox, Y: oy, Z: oz}, nil
}

func (t *Real) TransformGeometry(g geom.T) error {
	flat := g.FlatCoords()
	stride := g.Stride()
	if len(flat) == 0 || stride < 2 {
		return nil
	}
	zi := g.Layout().ZIndex()
	bstride := 2
	if zi >= 0 {
		bstride = 3
	}

	n := len(flat) / stride
	buf := make([]float64, n*bstride)
	for i := 0; i < n; i++ {
		x, y := flat[i*stride], flat[i*stride+1]
		if t.swapSrc {
			x, y = y, x
		}
		buf[i*bstride], buf[i*bstride+1] = x, y
		if zi >= 0 {
			buf[i*bstride+2] = flat[i*stride+zi]
		}
	}

	if err := t.tr.TransformFlat(buf, bstride); err != nil {
		text, werr := wkt.Marshal(g)
		if werr != nil {
			text = ""
		}
		return crserr.GeometryTransform(t.from, t.to, text, err)
	}

	for i := 0; i < n; i++ {
		x, y := buf[i*bstride], buf[i*bstride+1]
		if t.swapDst {
			x, y = y, x
		}
		flat[i*stride], flat[i*stride+1] = x, y
		if zi >= 0 {
			flat[i*stride+zi] = buf[i*bstride+2]
		}
	}
	return nil
}

func (t *Real) Close() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}
