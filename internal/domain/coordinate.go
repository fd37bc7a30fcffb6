package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjection marks a coordinate that cannot be mapped to a valid GeoPoint.
	ErrProjection = errors.New("projection error")

	// ErrEmptyResult is returned when no segment of a message produced a point.
	ErrEmptyResult = errors.New("no valid coordinates")

	// ErrUnsupportedFormat marks a token whose format no projector handles.
	ErrUnsupportedFormat = errors.New("unsupported coordinate format")
)

// FormatTag identifies the detector that recognized a token.
type FormatTag string

const (
	FormatLink     FormatTag = "link"
	FormatGeodetic FormatTag = "geodetic"
	FormatGrid     FormatTag = "grid"
)

// ParseFormatTag accepts the canonical tag names plus a few common aliases.
func ParseFormatTag(s string) (FormatTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "link", "url":
		return FormatLink, nil
	case "geodetic", "wgs84", "latlon":
		return FormatGeodetic, nil
	case "grid", "utm":
		return FormatGrid, nil
	default:
		return "", fmt.Errorf("unknown coordinate format %q", s)
	}
}

// Hemisphere selects the UTM false northing.
type Hemisphere byte

const (
	HemisphereNorth Hemisphere = 'N'
	HemisphereSouth Hemisphere = 'S'
)

// ParseHemisphere accepts N/S, north/south, or a UTM latitude band letter
// (C–M are southern, N–X northern; I and O are not bands). "S" always means
// south, so band S cannot be given by letter.
func ParseHemisphere(s string) (Hemisphere, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "N", "NORTH":
		return HemisphereNorth, nil
	case "S", "SOUTH":
		return HemisphereSouth, nil
	}
	if len(v) != 1 || v[0] < 'C' || v[0] > 'X' || v[0] == 'I' || v[0] == 'O' {
		return 0, fmt.Errorf("invalid hemisphere or latitude band %q", s)
	}
	if v[0] >= 'N' {
		return HemisphereNorth, nil
	}
	return HemisphereSouth, nil
}

func (h Hemisphere) String() string {
	return string(h)
}

// RawToken is one recognized coordinate substring with its optional label.
// For link and geodetic tokens First/Second are latitude/longitude; for grid
// tokens they are easting/northing in meters.
type RawToken struct {
	Text   string
	Label  string
	Format FormatTag
	First  float64
	Second float64
}

// GridCoordinate is a planar UTM position inside one zone.
type GridCoordinate struct {
	Easting    float64
	Northing   float64
	Zone       int
	Hemisphere Hemisphere
}

// GeoPoint is a WGS84 latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LabeledPoint pairs a canonical point with its display label.
type LabeledPoint struct {
	Label  string
	Point  GeoPoint
	Format FormatTag
}

// ShapeKind names the polygon drawn around each point.
type ShapeKind string

const (
	ShapeCircle  ShapeKind = "circle"
	ShapeSquare  ShapeKind = "square"
	ShapeHexagon ShapeKind = "hexagon"
	ShapeDiamond ShapeKind = "diamond"
)

// ParseShapeKind maps a configured name to a ShapeKind. Unknown names fall
// back to diamond.
func ParseShapeKind(s string) ShapeKind {
	switch k := ShapeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ShapeCircle, ShapeSquare, ShapeHexagon, ShapeDiamond:
		return k
	default:
		return ShapeDiamond
	}
}

// ShapeSpec is the process-wide marker geometry.
type ShapeSpec struct {
	Kind       ShapeKind
	SizeMeters float64
	// Segments is the vertex count for circles, closing vertex excluded.
	Segments int
}

// DefaultCircleSegments is used when ShapeSpec.Segments is unset.
const DefaultCircleSegments = 36

// Vertex is one ring position in KML (lon, lat) order.
type Vertex struct {
	Lon float64
	Lat float64
}

// Ring is a closed polygon boundary: the last vertex equals the first.
type Ring []Vertex

// Marker is a labeled point with its polygon, ready for encoding.
type Marker struct {
	Label       string
	Point       GeoPoint
	Format      FormatTag
	Ring        Ring
	Place       string
	Description string
}
