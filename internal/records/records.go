// Package records reads batches of records from JSON, NDJSON, YAML and CSV files.
package records

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format is a records file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json" // array of objects, or a stream of objects (NDJSON)
	FormatYAML Format = "yaml" // sequence of mappings
	FormatCSV  Format = "csv"  // header row, then one record per row
)

// ErrUnknownFormat is returned when a format cannot be determined.
var ErrUnknownFormat = errors.New("unknown records format")

// ParseFormat parses a format name. "ndjson", "jsonl" and "yml" are accepted aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json", "ndjson", "jsonl":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ReadFile reads records from path. "-" reads stdin and requires an explicit format.
// An empty format is inferred from the extension.
func ReadFile(path string, format Format) ([]core.Record, error) {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}

	if path == "-" {
		return Read(os.Stdin, format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer func() { _ = f.Close() }()

	recs, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Read decodes records in the given format.
func Read(r io.Reader, format Format) ([]core.Record, error) {
	switch format {
	case FormatJSON:
		return readJSON(r)
	case FormatYAML:
		return readYAML(r)
	case FormatCSV:
		return readCSV(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// readJSON accepts a top-level array or a whitespace-separated stream of objects.
// Numbers are kept as json.Number so large integers survive decoding.
func readJSON(r io.Reader) ([]core.Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var recs []core.Record
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
		for i, rec := range recs {
			if rec == nil {
				return nil, fmt.Errorf("record %d: not an object", i+1)
			}
		}
		return recs, nil
	}

	var recs []core.Record
	for n := 1; ; n++ {
		var rec core.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("record %d: not an object", n)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func readYAML(r io.Reader) ([]core.Record, error) {
	var recs []core.Record
	if err := yaml.NewDecoder(r).Decode(&recs); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	for i, rec := range recs {
		if rec == nil {
			return nil, fmt.Errorf("record %d: not a mapping", i+1)
		}
	}
	return recs, nil
}

// readCSV maps each row onto the header. Empty cells become nulls during normalization.
func readCSV(r io.Reader) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if seen[name] {
			return nil, fmt.Errorf("CSV header: duplicate column %q", name)
		}
		seen[name] = true
		header[i] = name
	}

	var recs []core.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rec := make(core.Record, len(header))
		for i, name := range header {
			rec[name] = row[i]
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
