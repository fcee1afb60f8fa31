package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
// Fractional seconds are accepted after the seconds field by every layout.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp reads an RFC 3339 timestamp, a zone-less date-time such as
// 2024-04-06T10:00:00 or 2024-04-06T10:00:00.1234567, or a bare date.
// Values without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseOptional treats an empty string as the zero time.
func parseOptional(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(s)
}

// flexTime decodes a JSON timestamp string with ParseTimestamp and records
// whether the key was present.
type flexTime struct {
	t   time.Time
	set bool
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	t, err := parseOptional(s)
	if err != nil {
		return err
	}
	f.t, f.set = t, strings.TrimSpace(s) != ""
	return nil
}

// pickTime returns the first set candidate, or current when none is set.
func pickTime(current time.Time, candidates ...flexTime) time.Time {
	for _, c := range candidates {
		if c.set {
			return c.t
		}
	}
	return current
}
