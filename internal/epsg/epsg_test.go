package epsg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBBoxPrecedence(t *testing.T) {
	tab := NewTable()
	tab.LoadDefaults()

	if got := tab.BBox(2393); got != (BBox{West: 19.24, East: 31.59, South: 59.75, North: 70.09}) {
		t.Fatalf("2393 bbox=%+v", got)
	}
	if got := tab.BBox(666); got != World {
		t.Fatalf("unknown code bbox=%+v want world", got)
	}

	explicit := BBox{West: 1, East: 2, South: 3, North: 4}
	tab.SetBBox(2393, explicit)
	if got := tab.BBox(2393); got != explicit {
		t.Fatalf("explicit bbox not preferred: %+v", got)
	}
	r, ok := tab.Record(2393)
	if !ok || r.BBox != explicit || r.Name == "" {
		t.Fatalf("record=%+v ok=%v", r, ok)
	}
	if _, ok := tab.Record(666); ok {
		t.Fatalf("unexpected record for 666")
	}
}

func TestAddKeepsLargerArea(t *testing.T) {
	tab := NewTable()
	small := Record{Code: 1, Name: "small", BBox: BBox{West: 0, East: 1, South: 0, North: 1}}
	large := Record{Code: 1, Name: "large", BBox: BBox{West: 0, East: 10, South: 0, North: 10}}

	if !tab.Add(small) {
		t.Fatalf("first add rejected")
	}
	if !tab.Add(large) {
		t.Fatalf("larger record rejected")
	}
	if tab.Add(small) {
		t.Fatalf("smaller record replaced larger one")
	}
	r, _ := tab.Record(1)
	if r.Name != "large" || tab.Len() != 1 {
		t.Fatalf("record=%+v len=%d", r, tab.Len())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "epsg.yaml")
	data := `
bbox:
  EPSG_2393: [19.24, 31.59, 59.75, 70.09]
  epsg_4326: [-180, 180, -90, 90]
epsg:
  - code: 3067
    name: ETRS89 / TM35FIN(E,N)
    scope: mapping
    deprecated: false
    bbox: [19.08, 31.59, 58.84, 70.09]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	tab := NewTable()
	if err := tab.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := tab.BBox(2393); got.West != 19.24 || got.North != 70.09 {
		t.Fatalf("2393 bbox=%+v", got)
	}
	r, ok := tab.Record(3067)
	if !ok || r.Scope != "mapping" || r.BBox.South != 58.84 {
		t.Fatalf("3067 record=%+v", r)
	}
	if codes := tab.Codes(); len(codes) != 1 || codes[0] != 3067 {
		t.Fatalf("codes=%v", codes)
	}
}

func TestParseFileErrors(t *testing.T) {
	cases := map[string]string{
		"short array": "bbox:\n  EPSG_1: [1, 2, 3]\n",
		"bad key":     "bbox:\n  WGS84: [1, 2, 3, 4]\n",
		"bad code":    "bbox:\n  EPSG_x: [1, 2, 3, 4]\n",
		"zero record": "epsg:\n  - name: nothing\n",
	}
	for name, data := range cases {
		f, err := ParseFile([]byte(data))
		if err == nil {
			err = f.Apply(NewTable())
		}
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
