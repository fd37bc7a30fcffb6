// Command kmlgen converts a free-text message into a KML file of markers and
// prints a per-point summary.
//
// Usage:
//
//	echo "709997/3505054" | go run ./cmd/kmlgen --zone 36 --hemisphere N
//	go run ./cmd/kmlgen --input message.txt --output out.kml --format yaml
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type options struct {
	Input      string  `short:"i" long:"input" description:"message file (default: stdin)"`
	Output     string  `short:"o" long:"output" description:"KML output path (default: locations_<unix>.kml)"`
	Zone       int     `short:"z" long:"zone" default:"36" description:"UTM zone for grid pairs (1-60)"`
	Hemisphere string  `long:"hemisphere" default:"N" description:"N, S, or a UTM latitude band letter"`
	Shape      string  `long:"shape" default:"diamond" choice:"diamond" choice:"square" choice:"circle" choice:"hexagon" description:"marker shape"`
	Size       float64 `long:"size" default:"3" description:"marker radius in meters"`
	Segments   int     `long:"segments" default:"36" description:"circle segment count"`
	Mode       string  `long:"mode" default:"lines" choice:"lines" choice:"fields" description:"how the message is segmented"`
	Format     string  `short:"f" long:"format" default:"text" choice:"text" choice:"json" choice:"yaml" description:"summary output format"`
}

// report is the machine-readable summary.
type report struct {
	File     string                `json:"file" yaml:"file"`
	Points   []domain.PointSummary `json:"points" yaml:"points"`
	Rejected int                   `json:"rejected" yaml:"rejected"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}
	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "kmlgen:", err)
		os.Exit(1)
	}
}

func run(opts options, stdin io.Reader, stdout io.Writer) error {
	settings, err := opts.settings()
	if err != nil {
		return err
	}
	converter, err := domain.NewConverter(settings)
	if err != nil {
		return err
	}

	text, err := readInput(opts.Input, stdin)
	if err != nil {
		return err
	}

	result, err := converter.Convert(text)
	if errors.Is(err, domain.ErrEmptyResult) {
		return errors.New(domain.EmptyResultMessage)
	}
	if err != nil {
		return err
	}

	path := opts.Output
	if path == "" {
		path = domain.FileName(result.Name)
	}
	if err := os.WriteFile(path, result.Document, 0o600); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}

	rep := report{
		File:     filepath.Base(path),
		Points:   converter.Points(result.Markers),
		Rejected: len(result.Rejected),
	}
	return writeReport(stdout, opts.Format, rep, result.Summary)
}

func (o options) settings() (domain.Settings, error) {
	s := domain.DefaultSettings()

	h, err := domain.ParseHemisphere(o.Hemisphere)
	if err != nil {
		return s, fmt.Errorf("--hemisphere: %w", err)
	}
	mode, err := domain.ParseSegmentMode(o.Mode)
	if err != nil {
		return s, fmt.Errorf("--mode: %w", err)
	}

	s.Zone = o.Zone
	s.Hemisphere = h
	s.Extract.Mode = mode
	s.Shape = domain.ShapeSpec{
		Kind:       domain.ParseShapeKind(o.Shape),
		SizeMeters: o.Size,
		Segments:   o.Segments,
	}
	return s, nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func writeReport(w io.Writer, format string, rep report, summary []string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintf(w, "%s\n%s\n", rep.File, strings.Join(summary, "\n"))
		return err
	}
}
