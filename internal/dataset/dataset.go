// Package dataset reads NL-to-SQL training records.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one training example. Fields beyond these (Spider's query_toks,
// sql and so on) are ignored.
type Record struct {
	DBID       string   `json:"db_id" yaml:"db_id"`
	Query      string   `json:"query" yaml:"query"`
	Question   string   `json:"question,omitempty" yaml:"question,omitempty"`
	Candidates []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// Format is a dataset file encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"  // a JSON array, as in Spider's train.json
	FormatJSONL Format = "jsonl" // one JSON object per line
	FormatYAML  Format = "yaml"  // a YAML sequence
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported dataset extension %q", ext)
	}
}

// Load reads every record of the file at path.
func Load(path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read decodes records from r and validates them.
func Read(r io.Reader, format Format) ([]Record, error) {
	var records []Record

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode JSON dataset: %w", err)
		}
	case FormatJSONL:
		dec := json.NewDecoder(r)
		for {
			var rec Record
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to decode record %d: %w", len(records), err)
			}
			records = append(records, rec)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}

	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// Validate checks the fields every record needs.
func (r Record) Validate() error {
	if strings.TrimSpace(r.DBID) == "" {
		return errors.New("missing db_id")
	}
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("missing query")
	}
	return nil
}
