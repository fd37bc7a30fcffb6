package domain

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// DecodedDocument is the subset of a KML file that EncodeDocument writes.
type DecodedDocument struct {
	XMLName  xml.Name
	Document struct {
		Name   string         `xml:"name"`
		Styles []decodedStyle `xml:"Style"`
		Marks  []DecodedMark  `xml:"Placemark"`
	} `xml:"Document"`
}

type decodedStyle struct {
	ID        string `xml:"id,attr"`
	LineColor string `xml:"LineStyle>color"`
	LineWidth string `xml:"LineStyle>width"`
	PolyColor string `xml:"PolyStyle>color"`
	Fill      int    `xml:"PolyStyle>fill"`
	Outline   int    `xml:"PolyStyle>outline"`
}

// DecodedMark is one decoded placemark.
type DecodedMark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	StyleURL    string `xml:"styleUrl"`
	Coordinates string `xml:"Polygon>outerBoundaryIs>LinearRing>coordinates"`
}

// DecodeDocument parses a KML document.
func DecodeDocument(data []byte) (DecodedDocument, error) {
	var doc DecodedDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return DecodedDocument{}, fmt.Errorf("decode kml: %w", err)
	}
	return doc, nil
}

// Problems lists every structural rule the document breaks: KML namespace,
// exactly one shared style, styleUrl references, and closed "lon,lat,0"
// rings. An empty result means the document is well-formed.
func (d DecodedDocument) Problems() []string {
	var problems []string
	if d.XMLName.Local != "kml" || d.XMLName.Space != KMLNamespace {
		problems = append(problems, fmt.Sprintf("root is {%s}%s, want {%s}kml", d.XMLName.Space, d.XMLName.Local, KMLNamespace))
	}
	if n := len(d.Document.Styles); n != 1 {
		problems = append(problems, fmt.Sprintf("found %d styles, want 1", n))
	}

	styleRef := ""
	if len(d.Document.Styles) > 0 {
		styleRef = "#" + d.Document.Styles[0].ID
	}

	for i, m := range d.Document.Marks {
		if m.StyleURL != styleRef {
			problems = append(problems, fmt.Sprintf("placemark %d (%s): styleUrl %q, want %q", i+1, m.Name, m.StyleURL, styleRef))
		}
		ring, err := ParseRing(m.Coordinates)
		if err != nil {
			problems = append(problems, fmt.Sprintf("placemark %d (%s): %v", i+1, m.Name, err))
			continue
		}
		if !ring.Closed() {
			problems = append(problems, fmt.Sprintf("placemark %d (%s): ring is not closed", i+1, m.Name))
		}
	}
	return problems
}

// Placemarks returns the decoded placemarks in document order.
func (d DecodedDocument) Placemarks() []DecodedMark {
	return d.Document.Marks
}

// ParseRing reads space-separated "lon,lat,0" triples.
func ParseRing(s string) (Ring, error) {
	fields := strings.Fields(s)
	ring := make(Ring, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, ",")
		if len(parts) != 3 || parts[2] != "0" {
			return nil, fmt.Errorf("coordinate %q is not lon,lat,0", f)
		}
		lon, errLon := strconv.ParseFloat(parts[0], 64)
		lat, errLat := strconv.ParseFloat(parts[1], 64)
		if errLon != nil || errLat != nil {
			return nil, fmt.Errorf("coordinate %q is not numeric", f)
		}
		ring = append(ring, Vertex{Lon: lon, Lat: lat})
	}
	return ring, nil
}
