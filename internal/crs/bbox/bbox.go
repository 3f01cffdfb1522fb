// Package bbox reprojects bounding boxes by transforming a densified copy
// of their boundary and taking the envelope of the result.
package bbox

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
	"github.com/mohammed-shakir/crs-cache/internal/crs/transform"
)

// DefaultSamples is the number of points placed on each edge.
const DefaultSamples = 10

var ErrInvalid = errors.New("invalid bounding box")

// Densify returns the boundary of bb as a closed ring with n points per
// edge. Corners are shared between edges, so the ring has 4n-3 points and
// its first and last points coincide.
func Densify(bb model.BBox, n int) *geom.Polygon {
	if n < 2 {
		n = 2
	}
	xStep := (bb.X2 - bb.X1) / float64(n-1)
	yStep := (bb.Y2 - bb.Y1) / float64(n-1)

	flat := make([]float64, 0, 2*(4*n-3))
	// left edge, bottom to top
	for i := 0; i < n-1; i++ {
		flat = append(flat, bb.X1, bb.Y1+float64(i)*yStep)
	}
	flat = append(flat, bb.X1, bb.Y2)
	// top edge, left to right
	for i := 1; i < n-1; i++ {
		flat = append(flat, bb.X1+float64(i)*xStep, bb.Y2)
	}
	flat = append(flat, bb.X2, bb.Y2)
	// right edge, top to bottom
	for i := 1; i < n-1; i++ {
		flat = append(flat, bb.X2, bb.Y2-float64(i)*yStep)
	}
	flat = append(flat, bb.X2, bb.Y1)
	// bottom edge, right to left, back to the start
	for i := 1; i < n-1; i++ {
		flat = append(flat, bb.X2-float64(i)*xStep, bb.Y1)
	}
	flat = append(flat, bb.X1, bb.Y1)

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// Envelope returns the axis aligned bounds of g tagged with crs.
func Envelope(g geom.T, crs string) model.BBox {
	b := g.Bounds()
	return model.BBox{X1: b.Min(0), Y1: b.Min(1), X2: b.Max(0), Y2: b.Max(1), CRS: crs}
}

// Reproject transforms bb with tr using n samples per edge. The result is
// labelled with the transformation's destination name.
func Reproject(tr transform.Transformation, bb model.BBox, n int) (model.BBox, error) {
	if !bb.Valid() {
		return model.BBox{}, fmt.Errorf("%w: %s", ErrInvalid, bb)
	}
	if _, ok := tr.(*transform.Identity); ok {
		out := bb
		out.CRS = tr.DestinationName()
		return out, nil
	}
	ring := Densify(bb, n)
	if err := tr.TransformGeometry(ring); err != nil {
		return model.BBox{}, err
	}
	return Envelope(ring, tr.DestinationName()), nil
}
