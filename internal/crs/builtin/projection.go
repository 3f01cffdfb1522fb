package builtin

import (
	"errors"
	"fmt"
	"math"
)

var errOutOfRange = errors.New("coordinate outside projection domain")

// projection converts between a CRS and WGS84 longitude/latitude in degrees.
type projection interface {
	toWGS84(x, y float64) (lon, lat float64, err error)
	fromWGS84(lon, lat float64) (x, y float64, err error)
}

// geographic is WGS84 (or a datum treated as identical to it) in degrees.
type geographic struct {
	latFirst bool
}

func (g geographic) toWGS84(x, y float64) (float64, float64, error) {
	lon, lat := x, y
	if g.latFirst {
		lon, lat = y, x
	}
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func (g geographic) fromWGS84(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	if g.latFirst {
		return lat, lon, nil
	}
	return lon, lat, nil
}

const (
	earthCircumference = 40075016.685578488
	originShift        = earthCircumference / 2.0
)

// webMercator is EPSG:3857.
type webMercator struct{}

func (webMercator) toWGS84(x, y float64) (float64, float64, error) {
	if !finite(x) || !finite(y) {
		return 0, 0, errOutOfRange
	}
	lon := (x / originShift) * 180.0
	lat := (y / originShift) * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return lon, lat, nil
}

func (webMercator) fromWGS84(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	if math.Abs(lat) >= 90 {
		return 0, 0, fmt.Errorf("%w: latitude %g", errOutOfRange, lat)
	}
	x := lon * originShift / 180.0
	y := math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return x, y, nil
}

// swissLV95 is EPSG:2056 using swisstopo's polynomial approximation
// (about one metre accuracy).
type swissLV95 struct{}

func (swissLV95) toWGS84(easting, northing float64) (float64, float64, error) {
	if !finite(easting) || !finite(northing) {
		return 0, 0, errOutOfRange
	}
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	lonSec := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	latSec := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	return lonSec * 100.0 / 36.0, latSec * 100.0 / 36.0, nil
}

func (swissLV95) fromWGS84(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	phiAux := (lat*3600 - 169028.66) / 10000
	lambdaAux := (lon*3600 - 26782.5) / 10000

	easting := 2_600_072.37 +
		211_455.93*lambdaAux -
		10_938.51*lambdaAux*phiAux -
		0.36*lambdaAux*phiAux*phiAux -
		44.54*lambdaAux*lambdaAux*lambdaAux

	northing := 1_200_147.07 +
		308_807.95*phiAux +
		3_745.25*lambdaAux*lambdaAux +
		76.63*phiAux*phiAux -
		194.56*lambdaAux*lambdaAux*phiAux +
		119.79*phiAux*phiAux*phiAux

	return easting, northing, nil
}

func checkLonLat(lon, lat float64) error {
	if !finite(lon) || !finite(lat) {
		return errOutOfRange
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %g", errOutOfRange, lat)
	}
	if lon < -540 || lon > 540 {
		return fmt.Errorf("%w: longitude %g", errOutOfRange, lon)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
