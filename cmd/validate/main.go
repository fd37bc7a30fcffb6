// Command validate checks KML documents and message fixtures for structural
// integrity: the KML namespace, a single shared style, styleUrl references,
// closed "lon,lat,0" rings, and fixture expectations replayed through the
// converter.
//
// Usage:
//
//	go run ./cmd/validate --fixtures data/mock/messages.json out/*.kml
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/jessevdk/go-flags"
	"github.com/jonboulle/clockwork"
)

type options struct {
	Fixtures string `short:"f" long:"fixtures" description:"message fixture JSON to replay through the converter"`
	Args     struct {
		Files []string `positional-arg-name:"FILE" description:"KML files to check"`
	} `positional-args:"yes"`
}

// fixture mirrors one entry of data/mock/messages.json.
type fixture struct {
	Key              string   `json:"key"`
	Text             string   `json:"text"`
	ExpectedStatus   string   `json:"expected_status"`
	ExpectedPoints   int      `json:"expected_points"`
	ExpectedRejected int      `json:"expected_rejected"`
	ExpectedLabels   []string `json:"expected_labels"`
	ExpectedFormats  []string `json:"expected_formats"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}
	if opts.Fixtures == "" && len(opts.Args.Files) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to validate: pass KML files and/or --fixtures")
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	fmt.Println("=== KML Integrity Validation ===")
	fmt.Println()

	var phases []*phase
	if len(opts.Args.Files) > 0 {
		phases = append(phases, validateFiles(opts.Args.Files))
	}
	if opts.Fixtures != "" {
		fixtures, err := loadFixtures(opts.Fixtures)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load fixtures: %v\n", err)
			return 1
		}
		converter, err := domain.NewConverter(domain.DefaultSettings())
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: converter: %v\n", err)
			return 1
		}
		phases = append(phases, validateFixtures(converter, fixtures))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadFixtures(path string) ([]fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fixtures []fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fixtures, nil
}

// validateFiles decodes each KML file and reports its structural problems.
func validateFiles(paths []string) *phase {
	p := &phase{name: "Phase 1: KML file structure"}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		for _, problem := range checkDocument(data) {
			p.errorf("%s: %s", path, problem)
		}
	}
	return p
}

func checkDocument(data []byte) []string {
	doc, err := domain.DecodeDocument(data)
	if err != nil {
		return []string{err.Error()}
	}
	problems := doc.Problems()
	if len(doc.Placemarks()) == 0 {
		problems = append(problems, "document has no placemarks")
	}
	return problems
}

// validateFixtures converts each fixture message under a fixed clock and
// compares the outcome with the recorded expectations.
func validateFixtures(converter *domain.Converter, fixtures []fixture) *phase {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	p := &phase{name: "Phase 2: fixture replay"}
	for _, f := range fixtures {
		result, err := converter.Convert(f.Text)

		status := string(domain.StatusProcessed)
		switch {
		case errors.Is(err, domain.ErrEmptyResult):
			status = string(domain.StatusEmpty)
		case err != nil:
			p.errorf("%s: convert: %v", f.Key, err)
			continue
		}

		if status != f.ExpectedStatus {
			p.errorf("%s: status %s, want %s", f.Key, status, f.ExpectedStatus)
		}
		if got := len(result.Markers); got != f.ExpectedPoints {
			p.errorf("%s: %d points, want %d", f.Key, got, f.ExpectedPoints)
		}
		if got := len(result.Rejected); got != f.ExpectedRejected {
			p.errorf("%s: %d rejected, want %d", f.Key, got, f.ExpectedRejected)
		}

		labels := make([]string, 0, len(result.Markers))
		formats := make([]string, 0, len(result.Markers))
		for _, m := range result.Markers {
			labels = append(labels, m.Label)
			formats = append(formats, string(m.Format))
		}
		if !slices.Equal(labels, f.ExpectedLabels) {
			p.errorf("%s: labels %v, want %v", f.Key, labels, f.ExpectedLabels)
		}
		if !slices.Equal(formats, f.ExpectedFormats) {
			p.errorf("%s: formats %v, want %v", f.Key, formats, f.ExpectedFormats)
		}

		if status == string(domain.StatusProcessed) {
			for _, problem := range checkDocument(result.Document) {
				p.errorf("%s: %s", f.Key, problem)
			}
		}
	}
	return p
}
