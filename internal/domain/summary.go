package domain

import (
	"fmt"
	"strings"
)

// DefaultMapsHost serves the "?q=lat,lon" links in summaries.
const DefaultMapsHost = "maps.google.com"

// MapLink returns "https://<host>/?q=<lat>,<lon>".
func MapLink(host string, p GeoPoint) string {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	if host == "" {
		host = DefaultMapsHost
	}
	return "https://" + host + "/?q=" + formatFloat(p.Lat) + "," + formatFloat(p.Lon)
}

// SummaryLine formats one marker as "<label>: <lat>, <lon> <link>", with the
// geocoded place appended in parentheses when known.
func SummaryLine(host string, m Marker) string {
	line := fmt.Sprintf("%s: %s, %s %s", m.Label, formatFloat(m.Point.Lat), formatFloat(m.Point.Lon), MapLink(host, m.Point))
	if m.Place != "" {
		line += " (" + m.Place + ")"
	}
	return line
}

// PointSummary is the structured form of a summary line.
type PointSummary struct {
	Label  string    `json:"label" yaml:"label"`
	Lat    float64   `json:"lat" yaml:"lat"`
	Lon    float64   `json:"lon" yaml:"lon"`
	Format FormatTag `json:"format" yaml:"format"`
	MapURL string    `json:"map_url" yaml:"map_url"`
	Place  string    `json:"place,omitempty" yaml:"place,omitempty"`
}

// Summarize returns one PointSummary per marker, in order.
func Summarize(host string, markers []Marker) []PointSummary {
	out := make([]PointSummary, len(markers))
	for i, m := range markers {
		out[i] = PointSummary{
			Label:  m.Label,
			Lat:    m.Point.Lat,
			Lon:    m.Point.Lon,
			Format: m.Format,
			MapURL: MapLink(host, m.Point),
			Place:  m.Place,
		}
	}
	return out
}
