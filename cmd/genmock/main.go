// Command genmock reads a YAML corpus of inbound messages and writes the
// JSON fixtures used by the pipeline and integration test suites. It runs
// each message through the domain converter so the recorded expectations
// match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock --in data/mock/messages.yaml --out data/mock/messages.json
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type options struct {
	In  string `long:"in" default:"data/mock/messages.yaml" description:"YAML message corpus"`
	Out string `long:"out" default:"data/mock/messages.json" description:"output path for the JSON fixtures"`
}

// message is one corpus entry.
type message struct {
	Key       string `yaml:"key"`
	Requester string `yaml:"requester"`
	Text      string `yaml:"text"`
}

// fixture is a message with the outcome the converter produced for it.
type fixture struct {
	Key              string   `json:"key"`
	Requester        string   `json:"requester"`
	Text             string   `json:"text"`
	ExpectedStatus   string   `json:"expected_status"`
	ExpectedPoints   int      `json:"expected_points"`
	ExpectedRejected int      `json:"expected_rejected"`
	ExpectedLabels   []string `json:"expected_labels"`
	ExpectedFormats  []string `json:"expected_formats"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	data, err := os.ReadFile(opts.In)
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	var messages []message
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("parse corpus %s: %w", opts.In, err)
	}

	converter, err := domain.NewConverter(domain.DefaultSettings())
	if err != nil {
		return err
	}

	fixtures, err := buildFixtures(converter, messages)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Out, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("write fixtures: %w", err)
	}

	log.Printf("wrote %d fixtures to %s", len(fixtures), opts.Out)
	return nil
}

func buildFixtures(converter *domain.Converter, messages []message) ([]fixture, error) {
	fixtures := make([]fixture, 0, len(messages))
	for _, m := range messages {
		located, err := converter.Locate(m.Text)
		status := domain.StatusProcessed
		switch {
		case errors.Is(err, domain.ErrEmptyResult):
			status = domain.StatusEmpty
		case err != nil:
			return nil, fmt.Errorf("%s: %w", m.Key, err)
		}

		f := fixture{
			Key:              m.Key,
			Requester:        m.Requester,
			Text:             m.Text,
			ExpectedStatus:   string(status),
			ExpectedPoints:   len(located.Markers),
			ExpectedRejected: len(located.Rejected),
			ExpectedLabels:   make([]string, 0, len(located.Markers)),
			ExpectedFormats:  make([]string, 0, len(located.Markers)),
		}
		for _, mk := range located.Markers {
			f.ExpectedLabels = append(f.ExpectedLabels, mk.Label)
			f.ExpectedFormats = append(f.ExpectedFormats, string(mk.Format))
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}
