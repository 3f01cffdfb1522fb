// Package crsconf loads coordinate system definitions from a directory of
// YAML files, one coordinate system per file.
package crsconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/crs-cache/internal/crs/attr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/registry"
)

// Attribute names set from definition files.
const (
	AttrShowHeight   = "showHeight"
	AttrAxisLabels   = "axisLabels"
	AttrProjURI      = "projUri"
	AttrProjEpochURI = "projEpochUri"
)

const (
	defaultRegex   = "(?:urn:ogc:def:crs:|)EPSG:{1,2}%04d"
	defaultProjURI = "http://www.opengis.net/def/crs/EPSG/0/%04d"
)

// Definition is one CRS file. Exactly one of EPSG, Proj4 or WKT is set.
type Definition struct {
	Name         string `yaml:"name"`
	SwapCoord    bool   `yaml:"swapCoord"`
	ShowHeight   bool   `yaml:"showHeight"`
	AxisLabels   string `yaml:"axisLabels"`
	ProjEpochURI string `yaml:"projEpochUri"`
	ProjURI      string `yaml:"projUri"`
	Regex        string `yaml:"regex"`

	EPSG  *int   `yaml:"epsg"`
	Proj4 string `yaml:"proj4"`
	WKT   string `yaml:"wkt"`
	// EPSGCode tags a proj4 or wkt definition with its EPSG code.
	EPSGCode *int `yaml:"epsgCode"`

	// Source is the file the definition was read from.
	Source string `yaml:"-"`
}

// Parse decodes and validates one definition, filling in EPSG defaults.
func Parse(data []byte, source string) (Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return d, fmt.Errorf("%s: empty definition", source)
		}
		return d, fmt.Errorf("%s: %w", source, err)
	}
	d.Source = source
	if err := d.normalize(); err != nil {
		return d, fmt.Errorf("%s: %w", source, err)
	}
	return d, nil
}

func (d *Definition) normalize() error {
	if d.Name == "" {
		return errors.New("name is mandatory")
	}
	if d.AxisLabels == "" {
		return errors.New("axisLabels is mandatory")
	}
	if d.ProjEpochURI == "" {
		return errors.New("projEpochUri is mandatory")
	}

	forms := 0
	for _, set := range []bool{d.EPSG != nil, d.Proj4 != "", d.WKT != ""} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return errors.New("exactly one of epsg, proj4 or wkt is required")
	}

	if d.EPSG != nil {
		if *d.EPSG <= 0 {
			return fmt.Errorf("invalid epsg code %d", *d.EPSG)
		}
		if d.EPSGCode != nil {
			return errors.New("epsgCode is only valid with proj4 or wkt")
		}
		if d.Regex == "" {
			d.Regex = fmt.Sprintf(defaultRegex, *d.EPSG)
		}
		if d.ProjURI == "" {
			d.ProjURI = fmt.Sprintf(defaultProjURI, *d.EPSG)
		}
		return nil
	}

	if d.Regex == "" {
		return errors.New("regex is mandatory for proj4 and wkt definitions")
	}
	if d.ProjURI == "" {
		return errors.New("projUri is mandatory for proj4 and wkt definitions")
	}
	return nil
}

// Attributes returns the attributes registered alongside the definition.
func (d Definition) Attributes() map[string]attr.Value {
	out := map[string]attr.Value{
		AttrShowHeight:   attr.Bool(d.ShowHeight),
		AttrAxisLabels:   attr.String(d.AxisLabels),
		AttrProjURI:      attr.String(d.ProjURI),
		AttrProjEpochURI: attr.String(d.ProjEpochURI),
	}
	if d.EPSGCode != nil {
		out[registry.AttrEPSG] = attr.Int(*d.EPSGCode)
	}
	return out
}

// LoadDir reads every *.yaml and *.yml file in dir, skipping names that
// start with '.' or '#'. Definitions are returned in file name order.
func LoadDir(dir string) ([]Definition, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("crs directory %q: %w", dir, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("crs directory %q not found: %w", abs, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("crs directory %q is not a directory", abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read crs directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var defs []Definition
	for _, e := range entries {
		fn := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(fn, ".") || strings.HasPrefix(fn, "#") {
			continue
		}
		if ext := filepath.Ext(fn); ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(abs, fn)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read crs description: %w", err)
		}
		d, err := Parse(data, path)
		if err != nil {
			return nil, fmt.Errorf("invalid crs description: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Registrar is implemented by the registry and by the engine.
type Registrar interface {
	RegisterEPSG(name string, code int, regex string, swap bool, opts ...registry.Option) error
	RegisterProj4(name, def, regex string, swap bool, opts ...registry.Option) error
	RegisterWKT(name, def, regex string, swap bool, opts ...registry.Option) error
}

// Register registers every definition, stopping at the first failure.
func Register(r Registrar, defs []Definition) error {
	for _, d := range defs {
		opt := registry.WithAttributes(d.Attributes())
		var err error
		switch {
		case d.EPSG != nil:
			err = r.RegisterEPSG(d.Name, *d.EPSG, d.Regex, d.SwapCoord, opt)
		case d.Proj4 != "":
			err = r.RegisterProj4(d.Name, d.Proj4, d.Regex, d.SwapCoord, opt)
		default:
			err = r.RegisterWKT(d.Name, d.WKT, d.Regex, d.SwapCoord, opt)
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", d.Source, err)
		}
	}
	return nil
}
