package builtin

import (
	"errors"
	"math"
	"testing"

	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

func mustTransformer(t *testing.T, b *Backend, src, dst spatial.SpatialRef) spatial.Transformer {
	t.Helper()
	tr, err := b.NewTransformer(src, dst)
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}
	return tr
}

func mustEPSG(t *testing.T, b *Backend, code int) spatial.SpatialRef {
	t.Helper()
	r, err := b.FromEPSG(code)
	if err != nil {
		t.Fatalf("FromEPSG(%d): %v", code, err)
	}
	return r
}

func TestWGS84ToWebMercator_AuthorityAxisOrder(t *testing.T) {
	b := New()
	tr := mustTransformer(t, b, mustEPSG(t, b, 4326), mustEPSG(t, b, 3857))

	// EPSG:4326 input is latitude first.
	x, y, _, err := tr.Transform(0, 180, 0)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if math.Abs(x-20037508.342789244) > 1e-3 || math.Abs(y) > 1e-6 {
		t.Fatalf("got (%f,%f)", x, y)
	}
}

func TestRoundTrip(t *testing.T) {
	b := New()
	wgs := mustEPSG(t, b, 4326)
	merc := mustEPSG(t, b, 3857)
	fwd := mustTransformer(t, b, wgs, merc)
	inv := mustTransformer(t, b, merc, wgs)

	lat, lon := 60.1699, 24.9384
	x, y, _, err := fwd.Transform(lat, lon, 0)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	lat2, lon2, _, err := inv.Transform(x, y, 0)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if math.Abs(lat2-lat) > 1e-9 || math.Abs(lon2-lon) > 1e-9 {
		t.Fatalf("round trip drifted: (%f,%f) -> (%f,%f)", lat, lon, lat2, lon2)
	}
}

func TestLatitudeOutOfRange(t *testing.T) {
	b := New()
	tr := mustTransformer(t, b, mustEPSG(t, b, 4326), mustEPSG(t, b, 3857))
	if _, _, _, err := tr.Transform(95, 0, 0); err == nil {
		t.Fatalf("expected error for latitude 95")
	}
	if _, _, _, err := tr.Transform(90, 0, 0); err == nil {
		t.Fatalf("expected error for mercator pole")
	}
	if _, _, _, err := tr.Transform(math.NaN(), 0, 0); err == nil {
		t.Fatalf("expected error for NaN")
	}
}

func TestSwissLV95(t *testing.T) {
	b := New()
	tr := mustTransformer(t, b, mustEPSG(t, b, 4326), mustEPSG(t, b, 2056))
	lat := 46 + 2.0/60 + 38.87/3600
	lon := 8 + 43.0/60 + 49.79/3600
	e, n, _, err := tr.Transform(lat, lon, 0)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if math.Abs(e-2_700_000) > 1 || math.Abs(n-1_100_000) > 1 {
		t.Fatalf("got E=%f N=%f", e, n)
	}
}

func TestFromEPSG_Unsupported(t *testing.T) {
	_, err := New().FromEPSG(2393)
	if !errors.Is(err, spatial.ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
}

func TestFromProj4(t *testing.T) {
	b := New()
	cases := []struct {
		def     string
		wantErr bool
		proj4   string
	}{
		{"+proj=longlat +datum=WGS84 +no_defs", false, proj4Geographic},
		{"+proj=latlong +ellps=WGS84", false, proj4Geographic},
		{"+init=epsg:3857", false, proj4WebMercator},
		{"+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0", false, proj4WebMercator},
		{proj4SwissLV95, false, proj4SwissLV95},
		{"+proj=merc +ellps=WGS84", true, ""},
		{"+proj=tmerc +lat_0=0", true, ""},
		{"proj=longlat", true, ""},
		{"+datum=WGS84", true, ""},
		{"   ", true, ""},
	}
	for _, tc := range cases {
		r, err := b.FromProj4(tc.def)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.def)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.def, err)
			continue
		}
		got, _ := r.Proj4()
		if got != tc.proj4 {
			t.Errorf("%q: proj4=%q want %q", tc.def, got, tc.proj4)
		}
	}
}

func TestProj4GeographicIsLongitudeFirst(t *testing.T) {
	b := New()
	src, err := b.FromProj4("+proj=longlat +datum=WGS84")
	if err != nil {
		t.Fatal(err)
	}
	tr := mustTransformer(t, b, src, mustEPSG(t, b, 3857))
	x, _, _, err := tr.Transform(180, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x-20037508.342789244) > 1e-3 {
		t.Fatalf("x=%f", x)
	}
}

func TestFromWKT(t *testing.T) {
	b := New()
	wgs84 := `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],` +
		`PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`
	r, err := b.FromWKT(wgs84)
	if err != nil {
		t.Fatalf("FromWKT: %v", err)
	}
	if r.(*ref).EPSG() != 4326 {
		t.Fatalf("code=%d", r.(*ref).EPSG())
	}
	// no AXIS in WKT1 means longitude first
	if r.(*ref).proj.(geographic).latFirst {
		t.Fatalf("expected longitude-first axis order")
	}

	merc := `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",AUTHORITY["EPSG","4326"]],` +
		`PROJECTION["Mercator_1SP"],AUTHORITY["EPSG","3857"]]`
	r, err = b.FromWKT(merc)
	if err != nil {
		t.Fatalf("FromWKT merc: %v", err)
	}
	if r.(*ref).EPSG() != 3857 {
		t.Fatalf("outer authority should win, got %d", r.(*ref).EPSG())
	}

	noAuth := `PROJCS["x",GEOGCS["WGS 84"],PROJECTION["Popular Visualisation Pseudo Mercator"]]`
	if _, err := b.FromWKT(noAuth); err != nil {
		t.Fatalf("FromWKT without authority: %v", err)
	}

	if _, err := b.FromWKT(`PROJCS["x",PROJECTION["Lambert_Conformal_Conic_2SP"]]`); !errors.Is(err, spatial.ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
	if _, err := b.FromWKT(`GEOGCS["x"`); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransformFlat(t *testing.T) {
	b := New()
	lonlat, _ := b.FromProj4("+proj=longlat +datum=WGS84")
	tr := mustTransformer(t, b, lonlat, mustEPSG(t, b, 3857))
	flat := []float64{0, 0, 180, 0}
	if err := tr.TransformFlat(flat, 2); err != nil {
		t.Fatalf("TransformFlat: %v", err)
	}
	if flat[0] != 0 || math.Abs(flat[2]-20037508.342789244) > 1e-3 {
		t.Fatalf("flat=%v", flat)
	}
	if err := tr.TransformFlat([]float64{0, 100}, 2); err == nil {
		t.Fatalf("expected error for latitude 100")
	}
}
