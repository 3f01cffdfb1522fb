package bbox

import (
	"errors"
	"math"
	"testing"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
	"github.com/mohammed-shakir/crs-cache/internal/crs/builtin"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/transform"
)

func TestDensifyRing(t *testing.T) {
	bb := model.BBox{X1: 0, Y1: 0, X2: 9, Y2: 18}
	ring := Densify(bb, 10)
	flat := ring.FlatCoords()
	if got := len(flat) / 2; got != 4*10-3 {
		t.Fatalf("points=%d want %d", got, 37)
	}
	if flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1] {
		t.Fatalf("ring not closed")
	}
	// no consecutive duplicates at the corners
	for i := 2; i < len(flat); i += 2 {
		if flat[i] == flat[i-2] && flat[i+1] == flat[i-1] {
			t.Fatalf("duplicate point at %d: (%g,%g)", i/2, flat[i], flat[i+1])
		}
	}
	// second point sits on the left edge one step up
	if flat[2] != 0 || flat[3] != 2 {
		t.Fatalf("second point (%g,%g)", flat[2], flat[3])
	}
	env := Envelope(ring, "x")
	if env.X1 != 0 || env.Y1 != 0 || env.X2 != 9 || env.Y2 != 18 {
		t.Fatalf("envelope %+v", env)
	}
}

func TestDensifyMinimumSamples(t *testing.T) {
	ring := Densify(model.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}, 0)
	if got := len(ring.FlatCoords()) / 2; got != 5 {
		t.Fatalf("points=%d want 5", got)
	}
}

func TestReprojectIdentity(t *testing.T) {
	bb := model.BBox{X1: 19.24, Y1: 59.75, X2: 31.59, Y2: 70.09, CRS: "EPSG:4326"}
	got, err := Reproject(transform.NewIdentity("WGS84"), bb, DefaultSamples)
	if err != nil {
		t.Fatal(err)
	}
	want := bb
	want.CRS = "WGS84"
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestReprojectWebMercator(t *testing.T) {
	b := builtin.New()
	src, _ := b.FromProj4("+proj=longlat +datum=WGS84")
	dst, _ := b.FromEPSG(3857)
	tr, err := b.NewTransformer(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	rt := transform.NewReal("CRS:84", "EPSG:3857", false, false, tr, tr.Close)
	defer rt.Close()

	got, err := Reproject(rt, model.BBox{X1: -180, Y1: -60, X2: 180, Y2: 60}, DefaultSamples)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.X1+20037508.342789244) > 1e-3 || math.Abs(got.X2-20037508.342789244) > 1e-3 {
		t.Fatalf("x range %f..%f", got.X1, got.X2)
	}
	if math.Abs(got.Y2-8399737.889818) > 1e-3 || math.Abs(got.Y1+got.Y2) > 1e-3 {
		t.Fatalf("y range %f..%f", got.Y1, got.Y2)
	}
	if got.CRS != "EPSG:3857" {
		t.Fatalf("crs=%q", got.CRS)
	}
}

func TestReprojectErrors(t *testing.T) {
	b := builtin.New()
	src, _ := b.FromProj4("+proj=longlat +datum=WGS84")
	dst, _ := b.FromEPSG(3857)
	tr, _ := b.NewTransformer(src, dst)
	rt := transform.NewReal("CRS:84", "EPSG:3857", false, false, tr, nil)

	_, err := Reproject(rt, model.BBox{X1: -10, Y1: -90, X2: 10, Y2: 90}, DefaultSamples)
	if !errors.Is(err, crserr.ErrGeometryTransform) {
		t.Fatalf("want geometry transform error, got %v", err)
	}
	_, err = Reproject(rt, model.BBox{X1: 10, Y1: 0, X2: -10, Y2: 1}, DefaultSamples)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}
