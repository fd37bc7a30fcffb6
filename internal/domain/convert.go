package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultLabelPrefix names unlabeled points "Loc 1", "Loc 2", ...
const DefaultLabelPrefix = "Loc"

// Settings is the read-once configuration of a Converter.
type Settings struct {
	Extract     ExtractOptions
	Zone        int
	Hemisphere  Hemisphere
	Shape       ShapeSpec
	Style       Style
	MapsHost    string
	LabelPrefix string
}

// DefaultSettings returns zone 36 north, 3 m diamonds and the default style.
func DefaultSettings() Settings {
	return Settings{
		Extract:     ExtractOptions{Mode: SegmentLines, Order: DefaultDetectorOrder},
		Zone:        36,
		Hemisphere:  HemisphereNorth,
		Shape:       ShapeSpec{Kind: ShapeDiamond, SizeMeters: 3, Segments: DefaultCircleSegments},
		Style:       DefaultStyle(),
		MapsHost:    DefaultMapsHost,
		LabelPrefix: DefaultLabelPrefix,
	}
}

// Rejection records a token dropped by the projector.
type Rejection struct {
	Text string
	Err  error
}

// Located is the outcome of Converter.Locate.
type Located struct {
	Markers   []Marker
	Rejected  []Rejection
	Unmatched int
}

// Result is a fully rendered conversion.
type Result struct {
	Located
	Name     string
	Document []byte
	Summary  []string
}

// Converter runs extract → project → shape → encode. It is immutable after
// construction and safe for concurrent use.
type Converter struct {
	extractor   *Extractor
	projector   Projector
	shape       ShapeSpec
	style       Style
	mapsHost    string
	labelPrefix string
}

// NewConverter validates s and builds a Converter.
func NewConverter(s Settings) (*Converter, error) {
	extractor, err := NewExtractor(s.Extract)
	if err != nil {
		return nil, err
	}
	projector, err := NewUTMProjector(s.Zone, s.Hemisphere)
	if err != nil {
		return nil, err
	}
	if s.Shape.SizeMeters <= 0 {
		return nil, fmt.Errorf("marker size must be > 0, got %g", s.Shape.SizeMeters)
	}
	if s.Shape.Kind == ShapeCircle && s.Shape.Segments < 3 {
		return nil, fmt.Errorf("circle needs at least 3 segments, got %d", s.Shape.Segments)
	}
	if err := s.Style.Validate(); err != nil {
		return nil, err
	}

	prefix := s.LabelPrefix
	if prefix == "" {
		prefix = DefaultLabelPrefix
	}
	host := s.MapsHost
	if host == "" {
		host = DefaultMapsHost
	}

	return &Converter{
		extractor:   extractor,
		projector:   projector,
		shape:       s.Shape,
		style:       s.Style,
		mapsHost:    host,
		labelPrefix: prefix,
	}, nil
}

// Locate extracts, projects and shapes every coordinate in text. Tokens that
// fail projection are dropped and listed in Rejected. When no marker survives
// the returned error is ErrEmptyResult; the Located value is still populated.
func (c *Converter) Locate(text string) (Located, error) {
	tokens, unmatched := c.extractor.Scan(text)
	out := Located{
		Markers:   make([]Marker, 0, len(tokens)),
		Unmatched: unmatched,
	}

	for _, tok := range tokens {
		p, err := c.projector.Project(tok)
		if err != nil {
			out.Rejected = append(out.Rejected, Rejection{Text: tok.Text, Err: err})
			continue
		}

		label := tok.Label
		if label == "" {
			label = c.labelPrefix + " " + strconv.Itoa(len(out.Markers)+1)
		}
		out.Markers = append(out.Markers, Marker{
			Label:  label,
			Point:  p,
			Format: tok.Format,
			Ring:   BuildRing(p, c.shape),
		})
	}

	if len(out.Markers) == 0 {
		return out, ErrEmptyResult
	}
	return out, nil
}

// Render encodes markers into a KML document named name.
func (c *Converter) Render(name string, markers []Marker) ([]byte, error) {
	return EncodeDocument(name, c.style, markers)
}

// Summary returns one human-readable line per marker.
func (c *Converter) Summary(markers []Marker) []string {
	lines := make([]string, len(markers))
	for i, m := range markers {
		lines[i] = SummaryLine(c.mapsHost, m)
	}
	return lines
}

// Points returns the structured summary of markers.
func (c *Converter) Points(markers []Marker) []PointSummary {
	return Summarize(c.mapsHost, markers)
}

// Convert is Locate followed by Render, naming the document after the
// current clock time. It returns ErrEmptyResult without a document when no
// coordinate was usable.
func (c *Converter) Convert(text string) (Result, error) {
	located, err := c.Locate(text)
	if err != nil {
		return Result{Located: located}, err
	}

	name := DocumentName(clock.Now())
	doc, err := c.Render(name, located.Markers)
	if err != nil {
		return Result{Located: located}, err
	}

	return Result{
		Located:  located,
		Name:     name,
		Document: doc,
		Summary:  c.Summary(located.Markers),
	}, nil
}

// DocumentName returns "locations_<unix seconds>".
func DocumentName(t time.Time) string {
	return "locations_" + strconv.FormatInt(t.Unix(), 10)
}

// FileName returns the document name with the .kml extension.
func FileName(name string) string {
	return name + ".kml"
}
