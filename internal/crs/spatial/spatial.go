// Package spatial declares the contract between the CRS registry and the
// library that parses spatial reference definitions and performs the
// coordinate math.
package spatial

import "errors"

var ErrUnsupported = errors.New("unsupported spatial reference")

// SpatialRef is a parsed CRS definition.
type SpatialRef interface {
	// Proj4 exports the definition as a PROJ.4 string.
	Proj4() (string, error)
	Close()
}

// Transformer converts coordinates from one SpatialRef to another. A
// Transformer is not safe for concurrent use.
type Transformer interface {
	Transform(x, y, z float64) (float64, float64, float64, error)
	// TransformFlat transforms interleaved coordinates in place. Only the
	// first two ordinates (and the third when stride >= 3) are touched.
	TransformFlat(flat []float64, stride int) error
	Close()
}

type Backend interface {
	FromEPSG(code int) (SpatialRef, error)
	FromProj4(def string) (SpatialRef, error)
	FromWKT(def string) (SpatialRef, error)
	NewTransformer(src, dst SpatialRef) (Transformer, error)
}
