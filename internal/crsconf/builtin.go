package crsconf

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns the definitions used when no definition directory is
// configured: WGS84 (latitude first), CRS:84 and EPSG:3857.
func Builtin() ([]Definition, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		data, err := builtinFS.ReadFile(n)
		if err != nil {
			return nil, err
		}
		d, err := Parse(data, "builtin:"+path.Base(n))
		if err != nil {
			return nil, fmt.Errorf("invalid builtin crs description: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}
