package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// linkRe finds a lat,lon query parameter inside a map URL, e.g.
	// "https://www.google.com/maps?q=32.0853,34.7818".
	linkRe = regexp.MustCompile(`(?i)https?://\S*?[?&](?:q|ll|query)=(-?\d+(?:\.\d+)?)(?:,|%2C)(?:\s|\+|%20)*(-?\d+(?:\.\d+)?)`)

	// geodeticRe matches "lat,lon", "lat lon" and an optional ";label" or
	// "-label" suffix. At most three integer digits per value.
	geodeticRe = regexp.MustCompile(`^(-?\d{1,3}\.\d+)\s*(?:,\s*|\s+)(-?\d{1,3}\.\d+)(?:\s*[;-]\s*(.*?))?\s*$`)

	// gridRe matches a six-digit easting and a six- or seven-digit northing
	// separated by "/", "," or whitespace, e.g. "709997/3505054".
	gridRe = regexp.MustCompile(`^(\d{6}(?:\.\d+)?)\s*(?:[/,]\s*|\s+)(\d{6,7}(?:\.\d+)?)(?:\s*[;-]\s*(.*?))?\s*$`)
)

// SegmentMode controls how a message is split before detection.
type SegmentMode string

const (
	// SegmentLines tests every non-empty line.
	SegmentLines SegmentMode = "lines"
	// SegmentFields tests every whitespace-delimited field. Pairs written with
	// a space separator and multi-word labels do not survive this mode.
	SegmentFields SegmentMode = "fields"
)

// ParseSegmentMode validates a configured segment mode.
func ParseSegmentMode(s string) (SegmentMode, error) {
	switch m := SegmentMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SegmentLines, SegmentFields:
		return m, nil
	case "":
		return SegmentLines, nil
	default:
		return "", fmt.Errorf("unknown segment mode %q", s)
	}
}

// DefaultDetectorOrder is link, then geodetic pair, then grid pair.
var DefaultDetectorOrder = []FormatTag{FormatLink, FormatGeodetic, FormatGrid}

// ExtractOptions configures an Extractor.
type ExtractOptions struct {
	Mode  SegmentMode
	Order []FormatTag
}

type detector func(segment string) (RawToken, bool)

// Extractor scans text for coordinate tokens. It holds no per-call state and
// is safe for concurrent use.
type Extractor struct {
	mode      SegmentMode
	detectors []detector
}

// NewExtractor builds an Extractor. An empty Order uses DefaultDetectorOrder.
func NewExtractor(opts ExtractOptions) (*Extractor, error) {
	mode := opts.Mode
	if mode == "" {
		mode = SegmentLines
	}
	if mode != SegmentLines && mode != SegmentFields {
		return nil, fmt.Errorf("unknown segment mode %q", mode)
	}

	order := opts.Order
	if len(order) == 0 {
		order = DefaultDetectorOrder
	}

	seen := make(map[FormatTag]bool, len(order))
	detectors := make([]detector, 0, len(order))
	for _, tag := range order {
		if seen[tag] {
			return nil, fmt.Errorf("detector %q listed twice", tag)
		}
		seen[tag] = true

		switch tag {
		case FormatLink:
			detectors = append(detectors, detectLink)
		case FormatGeodetic:
			detectors = append(detectors, detectGeodetic)
		case FormatGrid:
			detectors = append(detectors, detectGrid)
		default:
			return nil, fmt.Errorf("unknown detector %q", tag)
		}
	}

	return &Extractor{mode: mode, detectors: detectors}, nil
}

// extraction is the accumulator folded over the segments of one message.
type extraction struct {
	tokens     []RawToken
	pending    string
	hasPending bool
	unmatched  int
}

// Extract returns the recognized tokens of text in source order.
func (e *Extractor) Extract(text string) []RawToken {
	tokens, _ := e.Scan(text)
	return tokens
}

// Scan is Extract that also reports how many non-empty segments matched no
// detector (including those that became labels).
func (e *Extractor) Scan(text string) ([]RawToken, int) {
	acc := extraction{}
	for _, segment := range e.segments(text) {
		acc = e.fold(acc, segment)
	}
	return acc.tokens, acc.unmatched
}

func (e *Extractor) fold(acc extraction, segment string) extraction {
	tok, ok := e.detect(segment)
	if !ok {
		acc.pending = segment
		acc.hasPending = true
		acc.unmatched++
		return acc
	}

	if tok.Label == "" && acc.hasPending {
		tok.Label = acc.pending
	}
	acc.pending = ""
	acc.hasPending = false
	acc.tokens = append(acc.tokens, tok)
	return acc
}

func (e *Extractor) detect(segment string) (RawToken, bool) {
	for _, d := range e.detectors {
		if tok, ok := d(segment); ok {
			return tok, true
		}
	}
	return RawToken{}, false
}

func (e *Extractor) segments(text string) []string {
	var parts []string
	if e.mode == SegmentFields {
		parts = strings.Fields(text)
	} else {
		parts = strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// detectLink finds a map URL anywhere in the segment. Text before the URL
// on the same segment becomes the inline label, minus trailing ":", ";" or
// "-" separators; text after the URL is ignored.
func detectLink(segment string) (RawToken, bool) {
	m := linkRe.FindStringSubmatchIndex(segment)
	if m == nil {
		return RawToken{}, false
	}
	label := strings.TrimRight(strings.TrimSpace(segment[:m[0]]), ":;- \t")
	return pairToken(segment, FormatLink, segment[m[2]:m[3]], segment[m[4]:m[5]], label)
}

func detectGeodetic(segment string) (RawToken, bool) {
	m := geodeticRe.FindStringSubmatch(segment)
	if m == nil {
		return RawToken{}, false
	}
	return pairToken(segment, FormatGeodetic, m[1], m[2], m[3])
}

func detectGrid(segment string) (RawToken, bool) {
	m := gridRe.FindStringSubmatch(segment)
	if m == nil {
		return RawToken{}, false
	}
	return pairToken(segment, FormatGrid, m[1], m[2], m[3])
}

func pairToken(segment string, format FormatTag, first, second, label string) (RawToken, bool) {
	a, errA := strconv.ParseFloat(first, 64)
	b, errB := strconv.ParseFloat(second, 64)
	if errA != nil || errB != nil {
		return RawToken{}, false
	}
	return RawToken{
		Text:   segment,
		Label:  strings.TrimSpace(label),
		Format: format,
		First:  a,
		Second: b,
	}, true
}
