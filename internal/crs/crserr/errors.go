// Package crserr defines the error kinds reported by the CRS registry,
// the transformation layer and the transformation pool.
package crserr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind sentinels. Match them with errors.Is.
var (
	ErrDuplicateRegistration      = errors.New("duplicate coordinate system name")
	ErrInvalidDefinition          = errors.New("invalid coordinate system definition")
	ErrNotFound                   = errors.New("coordinate system not found")
	ErrTransformationConstruction = errors.New("failed to create coordinate transformation")
	ErrPointTransform             = errors.New("point transformation failed")
	ErrGeometryTransform          = errors.New("geometry transformation failed")
	ErrAttributeTypeMismatch      = errors.New("attribute type mismatch")
	ErrAttributeMissing           = errors.New("attribute not set")
)

// Param is a named piece of context attached to an Error.
type Param struct {
	Name  string
	Value string
}

// Error is the structured error type used throughout the CRS packages. It
// wraps exactly one kind sentinel and, optionally, the underlying cause.
type Error struct {
	Kind   error
	Msg    string
	Params []Param
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if len(e.Params) > 0 {
		b.WriteString(" (")
		for i, p := range e.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%q", p.Name, p.Value)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Param returns the value of the named parameter.
func (e *Error) Param(name string) (string, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func newError(kind error, msg string, cause error, kv ...string) *Error {
	e := &Error{Kind: kind, Msg: msg, Err: cause}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Params = append(e.Params, Param{Name: kv[i], Value: kv[i+1]})
	}
	return e
}

func Duplicate(name string) error {
	return newError(ErrDuplicateRegistration, "duplicate name of coordinate system", nil, "name", name)
}

// InvalidDefinition reports an unparsable definition; format is one of
// "epsg", "proj4", "wkt" or "regex".
func InvalidDefinition(name, format, input string, cause error) error {
	return newError(ErrInvalidDefinition, "failed to parse "+format+" definition", cause,
		"name", name, "format", format, "input", input)
}

func NotFound(input string) error {
	return newError(ErrNotFound, "coordinate system not found", nil, "input", input)
}

func TransformationConstruction(from, to string, cause error) error {
	return newError(ErrTransformationConstruction, "failed to create coordinate transformation", cause,
		"from", from, "to", to)
}

func PointTransform(from, to string, x, y float64, cause error) error {
	return newError(ErrPointTransform, "coordinate transformation failed", cause,
		"from", from, "to", to, "x", formatFloat(x), "y", formatFloat(y))
}

func GeometryTransform(from, to, wkt string, cause error) error {
	return newError(ErrGeometryTransform, "failed to transform geometry", cause,
		"from", from, "to", to, "geometry", wkt)
}

func AttributeTypeMismatch(attr, expected, actual string) error {
	return newError(ErrAttributeTypeMismatch, "type mismatch of attribute", nil,
		"attribute", attr, "expected", expected, "found", actual)
}

func AttributeMissing(attr string) error {
	return newError(ErrAttributeMissing, "attribute not set", nil, "attribute", attr)
}

// WithParam returns err with an extra parameter attached when err is an *Error.
func WithParam(err error, name, value string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Params = append(append([]Param(nil), e.Params...), Param{Name: name, Value: value})
	return &cp
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
