// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned bounding box tagged with the name of the CRS its
// coordinates are expressed in.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	CRS    string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.CRS)
}

// Valid reports whether all ordinates are finite and the box is not inverted.
func (b BBox) Valid() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X2 >= b.X1 && b.Y2 >= b.Y1
}

type Point struct {
	X, Y float64
}

type Point3D struct {
	X, Y, Z float64
}
