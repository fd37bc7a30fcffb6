package domain

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// KMLNamespace is the OGC KML 2.2 namespace.
const KMLNamespace = "http://www.opengis.net/kml/2.2"

// StyleID is the id of the single shared style in every document.
const StyleID = "marker"

// Style holds the shared marker appearance. Colors are RRGGBB hex.
type Style struct {
	StrokeColor string
	StrokeWidth float64
	FillColor   string
	FillOpacity int // percent, 0–100
}

// DefaultStyle is a red outline with a 65% opaque red fill.
func DefaultStyle() Style {
	return Style{
		StrokeColor: "ff0000",
		StrokeWidth: 2,
		FillColor:   "ff0000",
		FillOpacity: 65,
	}
}

// Validate checks the color strings, width and opacity.
func (s Style) Validate() error {
	for name, c := range map[string]string{"stroke": s.StrokeColor, "fill": s.FillColor} {
		if _, err := parseRGB(c); err != nil {
			return fmt.Errorf("%s color: %w", name, err)
		}
	}
	if s.StrokeWidth <= 0 {
		return fmt.Errorf("stroke width must be > 0, got %g", s.StrokeWidth)
	}
	if s.FillOpacity < 0 || s.FillOpacity > 100 {
		return fmt.Errorf("fill opacity must be 0-100, got %d", s.FillOpacity)
	}
	return nil
}

// kmlColor converts RRGGBB plus an alpha byte to KML's aabbggrr.
func kmlColor(rgb string, alpha uint8) (string, error) {
	b, err := parseRGB(rgb)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString([]byte{alpha, b[2], b[1], b[0]}), nil
}

func parseRGB(rgb string) ([]byte, error) {
	rgb = strings.TrimPrefix(strings.TrimSpace(rgb), "#")
	b, err := hex.DecodeString(rgb)
	if err != nil || len(b) != 3 {
		return nil, fmt.Errorf("invalid RRGGBB color %q", rgb)
	}
	return b, nil
}

// opacityAlpha maps a percent to an alpha byte, truncating (65% → 0xa5).
func opacityAlpha(percent int) uint8 {
	return uint8(percent * 255 / 100)
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name,omitempty"`
	Style      kmlStyle       `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID        string       `xml:"id,attr"`
	LineStyle kmlLineStyle `xml:"LineStyle"`
	PolyStyle kmlPolyStyle `xml:"PolyStyle"`
}

type kmlLineStyle struct {
	Color string `xml:"color"`
	Width string `xml:"width"`
}

type kmlPolyStyle struct {
	Color   string `xml:"color"`
	Fill    int    `xml:"fill"`
	Outline int    `xml:"outline"`
}

type kmlPlacemark struct {
	Name        string     `xml:"name"`
	Description string     `xml:"description,omitempty"`
	StyleURL    string     `xml:"styleUrl"`
	Polygon     kmlPolygon `xml:"Polygon"`
}

type kmlPolygon struct {
	Coordinates string `xml:"outerBoundaryIs>LinearRing>coordinates"`
}

// EncodeDocument renders markers as a KML document named name. Output is
// deterministic for identical input.
func EncodeDocument(name string, style Style, markers []Marker) ([]byte, error) {
	stroke, err := kmlColor(style.StrokeColor, 0xff)
	if err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}
	fill, err := kmlColor(style.FillColor, opacityAlpha(style.FillOpacity))
	if err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}

	root := kmlRoot{
		XMLNS: KMLNamespace,
		Document: kmlDocument{
			Name: name,
			Style: kmlStyle{
				ID:        StyleID,
				LineStyle: kmlLineStyle{Color: stroke, Width: formatFloat(style.StrokeWidth)},
				PolyStyle: kmlPolyStyle{Color: fill, Fill: 1, Outline: 1},
			},
			Placemarks: make([]kmlPlacemark, 0, len(markers)),
		},
	}

	for _, m := range markers {
		root.Document.Placemarks = append(root.Document.Placemarks, kmlPlacemark{
			Name:        m.Label,
			Description: m.Description,
			StyleURL:    "#" + StyleID,
			Polygon:     kmlPolygon{Coordinates: FormatRing(m.Ring)},
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FormatRing writes ring vertices as space-separated "lon,lat,0" triples.
func FormatRing(r Ring) string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = formatFloat(v.Lon) + "," + formatFloat(v.Lat) + ",0"
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
