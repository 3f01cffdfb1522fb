// Package epsg holds read-only EPSG reference data: names, scopes and
// geographic areas of use, keyed by numeric code.
package epsg

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// BBox is an area of use in decimal degrees.
type BBox struct {
	West  float64 `json:"west"`
	East  float64 `json:"east"`
	South float64 `json:"south"`
	North float64 `json:"north"`
}

// World is returned for codes without a known area of use.
var World = BBox{West: -180, East: 180, South: -90, North: 90}

func (b BBox) Area() float64 {
	return math.Abs(b.East-b.West) * math.Abs(b.North-b.South)
}

// UnmarshalYAML accepts the [west, east, south, north] list form.
func (b *BBox) UnmarshalYAML(n *yaml.Node) error {
	var v []float64
	if err := n.Decode(&v); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox must be an array of size 4, found %d at line %d", len(v), n.Line)
	}
	*b = BBox{West: v[0], East: v[1], South: v[2], North: v[3]}
	return nil
}

type Record struct {
	Code       int    `yaml:"code" json:"code"`
	Name       string `yaml:"name" json:"name"`
	Scope      string `yaml:"scope" json:"scope,omitempty"`
	Source     string `yaml:"source" json:"source,omitempty"`
	Deprecated bool   `yaml:"deprecated" json:"deprecated"`
	BBox       BBox   `yaml:"bbox" json:"bbox"`
}

// Table is populated at startup and read concurrently afterwards.
type Table struct {
	mu      sync.RWMutex
	records map[int]Record
	bboxes  map[int]BBox
}

func NewTable() *Table {
	return &Table{records: make(map[int]Record), bboxes: make(map[int]BBox)}
}

// Add stores r. When the code is already known the record with the larger
// area of use is kept. It reports whether r was stored.
func (t *Table) Add(r Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.records[r.Code]; ok && old.BBox.Area() >= r.BBox.Area() {
		return false
	}
	t.records[r.Code] = r
	return true
}

// SetBBox sets an explicit area of use that takes precedence over the
// record's.
func (t *Table) SetBBox(code int, b BBox) {
	t.mu.Lock()
	t.bboxes[code] = b
	t.mu.Unlock()
}

// BBox returns the explicit bbox for code, else the record's, else World.
func (t *Table) BBox(code int) BBox {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.bboxes[code]; ok {
		return b
	}
	if r, ok := t.records[code]; ok {
		return r.BBox
	}
	return World
}

func (t *Table) Record(code int) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[code]
	if ok {
		if b, explicit := t.bboxes[code]; explicit {
			r.BBox = b
		}
	}
	return r, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Codes returns all record codes in ascending order.
func (t *Table) Codes() []int {
	t.mu.RLock()
	out := make([]int, 0, len(t.records))
	for c := range t.records {
		out = append(out, c)
	}
	t.mu.RUnlock()
	sort.Ints(out)
	return out
}
