// Package builtin is a pure-Go spatial backend covering the handful of CRSs
// needed without a native projection library: WGS84 geographic, Web
// Mercator and Swiss LV95. Everything else is reported as unsupported.
package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
	"github.com/mohammed-shakir/crs-cache/internal/crs/wktcrs"
)

const (
	proj4Geographic  = "+proj=longlat +datum=WGS84 +no_defs"
	proj4WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +wktext +no_defs"
	proj4SwissLV95   = "+proj=somerc +lat_0=46.9524055555556 +lon_0=7.43958333333333 +k_0=1 +x_0=2600000 +y_0=1200000 +ellps=bessel +towgs84=674.374,15.056,405.346,0,0,0,0 +units=m +no_defs"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

type ref struct {
	proj  projection
	proj4 string
	code  int
}

func (r *ref) Proj4() (string, error) { return r.proj4, nil }
func (r *ref) Close()                 {}

// EPSG returns the EPSG code the reference was built from, or 0.
func (r *ref) EPSG() int { return r.code }

func (b *Backend) FromEPSG(code int) (spatial.SpatialRef, error) {
	// EPSG geographic CRSs are latitude-first by authority definition.
	return fromEPSG(code, true)
}

func fromEPSG(code int, latFirst bool) (spatial.SpatialRef, error) {
	switch code {
	case 4326, 4258:
		return &ref{proj: geographic{latFirst: latFirst}, proj4: proj4Geographic, code: code}, nil
	case 3857, 3785, 900913, 102100:
		return &ref{proj: webMercator{}, proj4: proj4WebMercator, code: code}, nil
	case 2056:
		return &ref{proj: swissLV95{}, proj4: proj4SwissLV95, code: code}, nil
	default:
		return nil, fmt.Errorf("%w: EPSG:%d", spatial.ErrUnsupported, code)
	}
}

func (b *Backend) FromProj4(def string) (spatial.SpatialRef, error) {
	params, err := parseProj4(def)
	if err != nil {
		return nil, err
	}
	if init, ok := params["init"]; ok {
		code, ok := strings.CutPrefix(strings.ToLower(init), "epsg:")
		if !ok {
			return nil, fmt.Errorf("%w: +init=%s", spatial.ErrUnsupported, init)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("proj4 +init code %q: %w", code, err)
		}
		// PROJ.4 strings are always longitude-first.
		return fromEPSG(n, false)
	}

	switch params["proj"] {
	case "longlat", "lonlat", "latlong", "latlon":
		return &ref{proj: geographic{}, proj4: proj4Geographic}, nil
	case "merc":
		if params["a"] == "6378137" && params["b"] == "6378137" || params["R"] == "6378137" {
			return &ref{proj: webMercator{}, proj4: proj4WebMercator, code: 3857}, nil
		}
	case "somerc":
		if params["x_0"] == "2600000" && params["y_0"] == "1200000" {
			return &ref{proj: swissLV95{}, proj4: proj4SwissLV95, code: 2056}, nil
		}
	case "":
		return nil, fmt.Errorf("proj4 definition %q has no +proj", def)
	}
	return nil, fmt.Errorf("%w: %s", spatial.ErrUnsupported, def)
}

func parseProj4(def string) (map[string]string, error) {
	fields := strings.Fields(def)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty proj4 definition")
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "+") || len(f) == 1 {
			return nil, fmt.Errorf("proj4 token %q must start with '+'", f)
		}
		k, v, _ := strings.Cut(f[1:], "=")
		out[k] = v
	}
	return out, nil
}

func (b *Backend) FromWKT(def string) (spatial.SpatialRef, error) {
	root, err := wktcrs.ParseStrict(def)
	if err != nil {
		return nil, err
	}
	kw := strings.ToUpper(root.Keyword)
	geog := kw == "GEOGCS" || kw == "GEOGCRS" || kw == "GEODCRS" || kw == "GEOGRAPHICCRS"

	if code, ok := authorityCode(root); ok {
		return fromEPSG(code, geog && latitudeFirst(root))
	}

	switch kw {
	case "GEOGCS", "GEOGCRS", "GEODCRS", "GEOGRAPHICCRS":
		return &ref{proj: geographic{latFirst: latitudeFirst(root)}, proj4: proj4Geographic}, nil
	case "PROJCS", "PROJCRS":
		method := root.Child("PROJECTION")
		if method == nil {
			if conv := root.Child("CONVERSION"); conv != nil {
				method = conv.Child("METHOD")
			}
		}
		if method != nil && len(method.Values) > 0 && isPseudoMercator(method.Values[0]) {
			return &ref{proj: webMercator{}, proj4: proj4WebMercator, code: 3857}, nil
		}
	}
	return nil, fmt.Errorf("%w: wkt %s", spatial.ErrUnsupported, root.Keyword)
}

func authorityCode(n *wktcrs.Node) (int, bool) {
	for _, kw := range []string{"AUTHORITY", "ID"} {
		a := n.LastChild(kw)
		if a == nil || len(a.Values) < 2 || !strings.EqualFold(a.Values[0], "EPSG") {
			continue
		}
		code, err := strconv.Atoi(a.Values[1])
		if err == nil {
			return code, true
		}
	}
	return 0, false
}

// latitudeFirst inspects the AXIS nodes; WKT1 without AXIS is
// longitude-first.
func latitudeFirst(n *wktcrs.Node) bool {
	ax := n.Child("AXIS")
	if ax == nil {
		if cs := n.Child("CS"); cs != nil {
			ax = cs.Child("AXIS")
		}
	}
	if ax == nil {
		return false
	}
	for _, v := range ax.Values {
		u := strings.ToUpper(v)
		if u == "NORTH" || u == "SOUTH" || strings.HasPrefix(u, "LAT") || strings.Contains(u, "(LAT)") {
			return true
		}
	}
	return false
}

func isPseudoMercator(method string) bool {
	m := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(method))
	return strings.Contains(m, "pseudomercator") ||
		strings.Contains(m, "popularvisualisation") ||
		strings.Contains(m, "mercatorauxiliarysphere")
}

func (b *Backend) NewTransformer(src, dst spatial.SpatialRef) (spatial.Transformer, error) {
	s, ok := src.(*ref)
	if !ok {
		return nil, fmt.Errorf("builtin: foreign source reference %T", src)
	}
	d, ok := dst.(*ref)
	if !ok {
		return nil, fmt.Errorf("builtin: foreign destination reference %T", dst)
	}
	return &transformer{src: s.proj, dst: d.proj}, nil
}

type transformer struct {
	src, dst projection
}

func (t *transformer) Transform(x, y, z float64) (float64, float64, float64, error) {
	lon, lat, err := t.src.toWGS84(x, y)
	if err != nil {
		return 0, 0, 0, err
	}
	ox, oy, err := t.dst.fromWGS84(lon, lat)
	if err != nil {
		return 0, 0, 0, err
	}
	return ox, oy, z, nil
}

func (t *transformer) TransformFlat(flat []float64, stride int) error {
	if stride < 2 {
		return fmt.Errorf("builtin: invalid stride %d", stride)
	}
	for i := 0; i+1 < len(flat); i += stride {
		x, y, _, err := t.Transform(flat[i], flat[i+1], 0)
		if err != nil {
			return fmt.Errorf("coordinate %d: %w", i/stride, err)
		}
		flat[i], flat[i+1] = x, y
	}
	return nil
}

func (t *transformer) Close() {}
