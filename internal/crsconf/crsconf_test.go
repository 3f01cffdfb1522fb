package crsconf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/crs-cache/internal/crs/builtin"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/registry"
)

func TestLoadDir(t *testing.T) {
	defs, err := LoadDir(filepath.Join("testdata", "crs"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	// sorted by file name; hidden, backup and non-yaml files skipped
	if got := strings.Join(names, ","); got != "CRS:84,LV95,EPSG:3857,WGS84" {
		t.Fatalf("names=%s", got)
	}

	wgs := defs[3]
	if wgs.Regex != "(?:urn:ogc:def:crs:|)EPSG:{1,2}4326" {
		t.Fatalf("default regex=%q", wgs.Regex)
	}
	if wgs.ProjURI != "http://www.opengis.net/def/crs/EPSG/0/4326" {
		t.Fatalf("default projUri=%q", wgs.ProjURI)
	}
	if !wgs.SwapCoord || !strings.HasSuffix(wgs.Source, "wgs84.yaml") {
		t.Fatalf("def=%+v", wgs)
	}
}

func TestParseValidation(t *testing.T) {
	base := "axisLabels: E N\nprojEpochUri: x\n"
	cases := map[string]string{
		"no name":        "epsg: 4326\n" + base,
		"no axis labels": "name: a\nepsg: 4326\nprojEpochUri: x\n",
		"no epoch uri":   "name: a\nepsg: 4326\naxisLabels: E N\n",
		"no form":        "name: a\n" + base,
		"two forms":      "name: a\nepsg: 4326\nproj4: '+proj=longlat'\n" + base,
		"proj4 no regex": "name: a\nproj4: '+proj=longlat'\nprojUri: u\n" + base,
		"wkt no projUri": "name: a\nwkt: 'GEOGCS[\"x\"]'\nregex: a\n" + base,
		"epsg with code": "name: a\nepsg: 4326\nepsgCode: 4326\n" + base,
		"negative code":  "name: a\nepsg: -1\n" + base,
		"unknown field":  "name: a\nepsg: 4326\nprojection: merc\n" + base,
		"empty":          "",
		"malformed yaml": "name: [a\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data), name); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	d, err := Parse([]byte("name: a\nepsg: 3067\nregex: 'EPSG:3067'\nprojUri: u\n"+base), "ok")
	if err != nil {
		t.Fatal(err)
	}
	if d.Regex != "EPSG:3067" || d.ProjURI != "u" {
		t.Fatalf("explicit values overwritten: %+v", d)
	}
	if _, err := Parse([]byte("name: a\nepsg: 42\n"+base), "pad"); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultRegexPadsCode(t *testing.T) {
	d, err := Parse([]byte("name: a\nepsg: 42\naxisLabels: E N\nprojEpochUri: x\n"), "pad")
	if err != nil {
		t.Fatal(err)
	}
	if d.Regex != "(?:urn:ogc:def:crs:|)EPSG:{1,2}0042" || !strings.HasSuffix(d.ProjURI, "/0042") {
		t.Fatalf("regex=%q projUri=%q", d.Regex, d.ProjURI)
	}
}

func TestLoadDirErrors(t *testing.T) {
	if _, err := LoadDir(filepath.Join("testdata", "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	if _, err := LoadDir(filepath.Join("testdata", "crs", "wgs84.yaml")); err == nil {
		t.Fatalf("expected error for file path")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: a\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil || !strings.Contains(err.Error(), "bad.yaml") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestRegisterIntoRegistry(t *testing.T) {
	defs, err := LoadDir(filepath.Join("testdata", "crs"))
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New(builtin.New())
	if err := Register(reg, defs); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Len() != 4 {
		t.Fatalf("len=%d", reg.Len())
	}

	e, err := reg.Resolve("urn:ogc:def:crs:EPSG::4326")
	if err != nil || e.Name() != "WGS84" {
		t.Fatalf("resolve urn: %v %v", e, err)
	}
	if labels, _ := e.Attributes().String(AttrAxisLabels); labels != "Lat Long" {
		t.Fatalf("axisLabels=%q", labels)
	}

	crs84, err := reg.Resolve("CRS84")
	if err != nil {
		t.Fatal(err)
	}
	if code, err := crs84.Attributes().Int(registry.AttrEPSG); err != nil || code != 4326 {
		t.Fatalf("epsgCode attribute=%d err=%v", code, err)
	}
	if uri, _ := crs84.Attributes().String(AttrProjURI); uri != "http://www.opengis.net/def/crs/OGC/1.3/CRS84" {
		t.Fatalf("projUri=%q", uri)
	}

	lv95, err := reg.Resolve("EPSG:2056")
	if err != nil || lv95.Name() != "LV95" {
		t.Fatalf("lv95: %v %v", lv95, err)
	}

	// a second load collides with the first
	err = Register(reg, defs)
	if !errors.Is(err, crserr.ErrDuplicateRegistration) {
		t.Fatalf("want duplicate error, got %v", err)
	}
}

func TestBuiltin(t *testing.T) {
	defs, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != "CRS:84,EPSG:3857,WGS84" {
		t.Fatalf("names=%s", got)
	}
	if !defs[2].SwapCoord {
		t.Fatalf("WGS84 must swap coordinates")
	}
}
