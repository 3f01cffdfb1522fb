package epsg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML reference file layout:
//
//	bbox:
//	  EPSG_2393: [19.24, 31.59, 59.75, 70.09]
//	epsg:
//	  - {code: 2393, name: KKJ / Finland Uniform Coordinate System, bbox: [19.24, 31.59, 59.75, 70.09]}
type File struct {
	BBox map[string]BBox `yaml:"bbox"`
	EPSG []Record        `yaml:"epsg"`
}

func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Apply adds the file's records and explicit bboxes to t.
func (f *File) Apply(t *Table) error {
	for name, b := range f.BBox {
		code, err := bboxCode(name)
		if err != nil {
			return err
		}
		t.SetBBox(code, b)
	}
	for _, r := range f.EPSG {
		if r.Code <= 0 {
			return fmt.Errorf("epsg record %q: invalid code %d", r.Name, r.Code)
		}
		t.Add(r)
	}
	return nil
}

// LoadFile reads a reference file into t.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read epsg file: %w", err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return fmt.Errorf("parse epsg file %s: %w", path, err)
	}
	if err := f.Apply(t); err != nil {
		return fmt.Errorf("epsg file %s: %w", path, err)
	}
	return nil
}

// bboxCode parses keys of the form EPSG_<code>.
func bboxCode(name string) (int, error) {
	if len(name) < 6 || !strings.EqualFold(name[:5], "EPSG_") {
		return 0, fmt.Errorf("bbox key %q must look like EPSG_<code>", name)
	}
	code, err := strconv.Atoi(name[5:])
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("bbox key %q: invalid code", name)
	}
	return code, nil
}
