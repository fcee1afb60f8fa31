package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// EventType is a named, colored category for events within one timeline.
// Name is unique among the event types of its timeline.
type EventType struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// Event is a timestamped note attached to a timeline.
type Event struct {
	ID   string `json:"id" yaml:"id"`
	Note string `json:"note" yaml:"note"`
	// Type names an EventType of the same timeline. It is a soft label:
	// nothing checks that the type exists.
	Type string `json:"type" yaml:"type"`
	// Time is when the thing happened, as supplied by the caller.
	Time      time.Time `json:"time" yaml:"time"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Timeline is the unit of persistence: one document holding its events and event types.
type Timeline struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	Events      []Event     `json:"events" yaml:"events"`
	EventTypes  []EventType `json:"event_types" yaml:"event_types"`
}

// UnmarshalJSON accepts both created_at and the camel-cased createdAt key,
// with any timestamp form ParseTimestamp understands.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	type plain Timeline
	aux := struct {
		*plain
		CreatedAt      flexTime `json:"created_at"`
		CreatedAtCamel flexTime `json:"createdAt"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.CreatedAt = pickTime(t.CreatedAt, aux.CreatedAt, aux.CreatedAtCamel)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (t *Timeline) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID          string      `yaml:"id"`
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		CreatedAt   string      `yaml:"created_at"`
		Events      []Event     `yaml:"events"`
		EventTypes  []EventType `yaml:"event_types"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	createdAt, err := parseOptional(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	*t = Timeline{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		CreatedAt:   createdAt,
		Events:      raw.Events,
		EventTypes:  raw.EventTypes,
	}
	return nil
}

// UnmarshalJSON accepts date-only and zone-less times as written by older
// clients, and createdAt as an alias of created_at.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		Time           flexTime `json:"time"`
		CreatedAt      flexTime `json:"created_at"`
		CreatedAtCamel flexTime `json:"createdAt"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Time = pickTime(e.Time, aux.Time)
	e.CreatedAt = pickTime(e.CreatedAt, aux.CreatedAt, aux.CreatedAtCamel)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID        string `yaml:"id"`
		Note      string `yaml:"note"`
		Type      string `yaml:"type"`
		Time      string `yaml:"time"`
		CreatedAt string `yaml:"created_at"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	at, err := parseOptional(raw.Time)
	if err != nil {
		return fmt.Errorf("time: %w", err)
	}
	createdAt, err := parseOptional(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	*e = Event{ID: raw.ID, Note: raw.Note, Type: raw.Type, Time: at, CreatedAt: createdAt}
	return nil
}

// Normalize replaces nil collections with empty ones so documents always
// serialize events and event_types as arrays.
func (t *Timeline) Normalize() {
	if t.Events == nil {
		t.Events = []Event{}
	}
	if t.EventTypes == nil {
		t.EventTypes = []EventType{}
	}
}

// Clone returns a deep copy of the timeline.
func (t Timeline) Clone() Timeline {
	out := t
	out.Events = make([]Event, len(t.Events))
	copy(out.Events, t.Events)
	out.EventTypes = make([]EventType, len(t.EventTypes))
	copy(out.EventTypes, t.EventTypes)
	return out
}

// TimelineStats summarizes the persisted timelines.
type TimelineStats struct {
	Timelines    int64            `json:"timelines"`
	Events       int64            `json:"events"`
	EventTypes   int64            `json:"event_types"`
	EventsByType map[string]int64 `json:"events_by_type"`
}
