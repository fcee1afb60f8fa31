// Package transfer reads and writes timeline documents in the formats used
// by the export and import commands.
package transfer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

// Format names an encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat normalizes a user-supplied format name. "yml" is accepted as yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Encode writes timelines to w as an indented JSON array, JSON lines, or a
// YAML sequence. CSV is per-timeline; see WriteEventsCSV.
func Encode(w io.Writer, format Format, tls []models.Timeline) error {
	docs := make([]models.Timeline, len(tls))
	for i := range tls {
		docs[i] = tls[i].Clone()
		docs[i].Normalize()
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for i := range docs {
			if err := enc.Encode(docs[i]); err != nil {
				return fmt.Errorf("encoding JSON line: %w", err)
			}
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
	default:
		return fmt.Errorf("cannot encode timelines as %q", format)
	}
	return nil
}

// Decode reads timelines from r. JSON input may be an array or a single
// document; JSONL holds one document per line; YAML may be a sequence or a
// single mapping.
func Decode(r io.Reader, format Format) ([]models.Timeline, error) {
	var tls []models.Timeline
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading JSON: %w", err)
		}
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var tl models.Timeline
			if err := json.Unmarshal(trimmed, &tl); err != nil {
				return nil, fmt.Errorf("decoding JSON: %w", err)
			}
			tls = []models.Timeline{tl}
		} else if err := json.Unmarshal(trimmed, &tls); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	case FormatJSONL:
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var tl models.Timeline
			if err := json.Unmarshal([]byte(text), &tl); err != nil {
				return nil, fmt.Errorf("decoding JSONL line %d: %w", line, err)
			}
			tls = append(tls, tl)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading JSONL: %w", err)
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.NewDecoder(r).Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return []models.Timeline{}, nil
			}
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		root := &node
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}
		if root.Kind == yaml.MappingNode {
			var tl models.Timeline
			if err := root.Decode(&tl); err != nil {
				return nil, fmt.Errorf("decoding YAML: %w", err)
			}
			tls = []models.Timeline{tl}
		} else if err := root.Decode(&tls); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("cannot decode timelines from %q", format)
	}

	for i := range tls {
		tls[i].Normalize()
	}
	if tls == nil {
		tls = []models.Timeline{}
	}
	return tls, nil
}

// eventsHeader is the CSV header row written by WriteEventsCSV.
var eventsHeader = []string{"id", "time", "type", "color", "note", "created_at"}

// WriteEventsCSV writes the events of tl, in stored order, with each event's
// color resolved from the timeline's event types.
func WriteEventsCSV(w io.Writer, tl models.Timeline) error {
	colors := make(map[string]string, len(tl.EventTypes))
	for _, et := range tl.EventTypes {
		colors[et.Name] = et.Color
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(eventsHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, ev := range tl.Events {
		row := []string{
			ev.ID,
			formatTime(ev.Time),
			ev.Type,
			colors[ev.Type],
			ev.Note,
			formatTime(ev.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
