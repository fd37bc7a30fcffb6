package domain

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM constants.
const (
	wgs84A        = 6378137.0
	wgs84F        = 1 / 298.257223563
	utmScale      = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0

	minEasting = 100000.0
	maxEasting = 900000.0
)

var (
	wgs84E2  = wgs84F * (2 - wgs84F)
	wgs84Ep2 = wgs84E2 / (1 - wgs84E2)
)

// Projector converts a recognized token into a canonical GeoPoint.
type Projector interface {
	Project(tok RawToken) (GeoPoint, error)
}

// UTMProjector passes geodetic tokens through and inverse-projects grid
// tokens in a fixed zone and hemisphere.
type UTMProjector struct {
	zone       int
	hemisphere Hemisphere
}

// NewUTMProjector validates the zone (1–60) and hemisphere.
func NewUTMProjector(zone int, hemisphere Hemisphere) (*UTMProjector, error) {
	if zone < 1 || zone > 60 {
		return nil, fmt.Errorf("utm zone %d out of range 1-60", zone)
	}
	if hemisphere != HemisphereNorth && hemisphere != HemisphereSouth {
		return nil, fmt.Errorf("invalid hemisphere %q", hemisphere)
	}
	return &UTMProjector{zone: zone, hemisphere: hemisphere}, nil
}

// Project returns the canonical point for tok. Failures wrap ErrProjection.
func (p *UTMProjector) Project(tok RawToken) (GeoPoint, error) {
	switch tok.Format {
	case FormatLink, FormatGeodetic:
		return NewGeoPoint(tok.First, tok.Second)
	case FormatGrid:
		return GridToGeo(GridCoordinate{
			Easting:    tok.First,
			Northing:   tok.Second,
			Zone:       p.zone,
			Hemisphere: p.hemisphere,
		})
	default:
		return GeoPoint{}, fmt.Errorf("%w: %w %q", ErrProjection, ErrUnsupportedFormat, tok.Format)
	}
}

// NewGeoPoint validates latitude and longitude ranges.
func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return GeoPoint{}, fmt.Errorf("%w: non-finite coordinate", ErrProjection)
	}
	if lat < -90 || lat > 90 {
		return GeoPoint{}, fmt.Errorf("%w: latitude %g out of range", ErrProjection, lat)
	}
	if lon < -180 || lon > 180 {
		return GeoPoint{}, fmt.Errorf("%w: longitude %g out of range", ErrProjection, lon)
	}
	return GeoPoint{Lat: lat, Lon: lon}, nil
}

// CentralMeridian returns the longitude of a UTM zone's central meridian.
func CentralMeridian(zone int) float64 {
	return float64(zone*6 - 183)
}

// GridToGeo applies the closed-form inverse transverse Mercator projection.
func GridToGeo(g GridCoordinate) (GeoPoint, error) {
	if g.Zone < 1 || g.Zone > 60 {
		return GeoPoint{}, fmt.Errorf("%w: utm zone %d out of range", ErrProjection, g.Zone)
	}
	if math.IsNaN(g.Easting) || math.IsNaN(g.Northing) {
		return GeoPoint{}, fmt.Errorf("%w: non-finite grid coordinate", ErrProjection)
	}
	if g.Easting < minEasting || g.Easting > maxEasting {
		return GeoPoint{}, fmt.Errorf("%w: easting %g outside %g-%g", ErrProjection, g.Easting, minEasting, maxEasting)
	}
	if g.Northing < 0 || g.Northing >= falseNorthing {
		return GeoPoint{}, fmt.Errorf("%w: northing %g outside 0-%g", ErrProjection, g.Northing, falseNorthing)
	}

	x := g.Easting - falseEasting
	y := g.Northing
	if g.Hemisphere == HemisphereSouth {
		y -= falseNorthing
	}

	e2 := wgs84E2
	e4 := e2 * e2
	e6 := e4 * e2

	// Meridional arc and its rectifying latitude.
	m := y / utmScale
	mu := m / (wgs84A * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	// Footpoint latitude from the e1 series.
	sq := math.Sqrt(1 - e2)
	e1 := (1 - sq) / (1 + sq)
	e1p2 := e1 * e1
	e1p3 := e1p2 * e1
	e1p4 := e1p3 * e1
	phi1 := mu +
		(3*e1/2-27*e1p3/32)*math.Sin(2*mu) +
		(21*e1p2/16-55*e1p4/32)*math.Sin(4*mu) +
		(151*e1p3/96)*math.Sin(6*mu) +
		(1097*e1p4/512)*math.Sin(8*mu)

	sinPhi := math.Sin(phi1)
	cosPhi := math.Cos(phi1)
	tanPhi := math.Tan(phi1)

	w := 1 - e2*sinPhi*sinPhi
	n1 := wgs84A / math.Sqrt(w)
	r1 := wgs84A * (1 - e2) / (w * math.Sqrt(w))
	t1 := tanPhi * tanPhi
	c1 := wgs84Ep2 * cosPhi * cosPhi
	d := x / (n1 * utmScale)
	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	lat := phi1 - (n1*tanPhi/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*wgs84Ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*wgs84Ep2-3*c1*c1)*d6/720)
	lon := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*wgs84Ep2+24*t1*t1)*d5/120) / cosPhi

	return NewGeoPoint(lat*180/math.Pi, CentralMeridian(g.Zone)+lon*180/math.Pi)
}
