// Package timeline implements timeline, event, and event-type operations on
// top of a document store. Every mutation loads the timeline, applies the
// consistency rules, and writes the whole document back while holding a
// per-timeline lock.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/simpleevents/internal/metrics"
	"github.com/ajitpratap0/simpleevents/internal/models"
	"github.com/ajitpratap0/simpleevents/internal/store"
)

// Service owns timeline documents and the rules that keep them consistent.
// Concurrent mutations of one timeline are serialized within the process;
// separate processes sharing a store are not coordinated.
type Service struct {
	store  store.Store
	logger *slog.Logger
	locks  *keyedMutex
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator of timeline and event ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service backed by st.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTimelines returns every persisted timeline.
func (s *Service) ListTimelines(ctx context.Context) ([]models.Timeline, error) {
	tls, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storageErr("listing timelines", err)
	}
	return tls, nil
}

// GetTimeline returns the timeline with the given id.
func (s *Service) GetTimeline(ctx context.Context, id string) (*models.Timeline, error) {
	return s.load(ctx, id)
}

// CreateTimeline stores draft under a fresh id. created_at defaults to now;
// seeded events get ids and created_at stamps where missing, and seeded
// event types must have unique, non-empty names.
func (s *Service) CreateTimeline(ctx context.Context, draft models.Timeline) (*models.Timeline, error) {
	tl := draft.Clone()
	tl.ID = s.newID()
	now := s.now()
	if tl.CreatedAt.IsZero() {
		tl.CreatedAt = now
	}
	tl.Normalize()

	if err := validateEventTypes(tl.EventTypes); err != nil {
		return nil, s.ruleErr(err)
	}
	for i := range tl.Events {
		if tl.Events[i].ID == "" {
			tl.Events[i].ID = s.newID()
		}
		if tl.Events[i].CreatedAt.IsZero() {
			tl.Events[i].CreatedAt = now
		}
	}
	if err := validateEvents(tl.Events); err != nil {
		return nil, s.ruleErr(err)
	}

	unlock := s.locks.Lock(tl.ID)
	defer unlock()
	if err := s.save(ctx, tl); err != nil {
		return nil, err
	}

	metrics.Inc(metrics.TimelinesCreated)
	s.logger.Info("timeline: created", "timeline_id", tl.ID, "name", tl.Name)
	return &tl, nil
}

// RestoreTimeline writes a complete document under its own id, replacing
// any existing one. The document must already satisfy every invariant.
func (s *Service) RestoreTimeline(ctx context.Context, tl models.Timeline) (*models.Timeline, error) {
	if !store.ValidID(tl.ID) {
		return nil, s.ruleErr(invalidArgument("Timeline id %q is not valid", tl.ID))
	}
	doc := tl.Clone()
	doc.Normalize()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	if err := validateEventTypes(doc.EventTypes); err != nil {
		return nil, s.ruleErr(err)
	}
	if err := validateEvents(doc.Events); err != nil {
		return nil, s.ruleErr(err)
	}

	unlock := s.locks.Lock(doc.ID)
	defer unlock()
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("timeline: restored", "timeline_id", doc.ID, "events", len(doc.Events))
	return &doc, nil
}

// UpdateTimeline replaces name and description. id, created_at, events and
// event types always come from the stored document.
func (s *Service) UpdateTimeline(ctx context.Context, id string, draft models.Timeline) (*models.Timeline, error) {
	var out models.Timeline
	err := s.mutate(ctx, id, func(tl *models.Timeline) error {
		*tl = mergeTimeline(*tl, draft)
		out = tl.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("timeline: updated", "timeline_id", id)
	return &out, nil
}

// DeleteTimeline removes the timeline. Deleting a missing timeline succeeds.
func (s *Service) DeleteTimeline(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("timeline: delete of missing timeline", "timeline_id", id)
			return nil
		}
		return s.storageErr("deleting timeline", err)
	}
	metrics.Inc(metrics.TimelinesDeleted)
	s.logger.Info("timeline: deleted", "timeline_id", id)
	return nil
}

// CreateEvent appends draft to the timeline with a fresh id and created_at.
func (s *Service) CreateEvent(ctx context.Context, timelineID string, draft models.Event) (*models.Event, error) {
	ev := draft
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		ev.ID = s.newID()
		ev.CreatedAt = s.now()
		tl.Events = append(tl.Events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.EventsWritten)
	s.logger.Info("timeline: event created", "timeline_id", timelineID, "event_id", ev.ID, "type", ev.Type)
	return &ev, nil
}

// UpdateEvent replaces every field of the event except its id and created_at.
func (s *Service) UpdateEvent(ctx context.Context, timelineID, eventID string, draft models.Event) (*models.Event, error) {
	var ev models.Event
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		idx := findEvent(tl, eventID)
		if idx < 0 {
			return notFound("Event with id %s not found", eventID)
		}
		ev = mergeEvent(tl.Events[idx], draft)
		tl.Events[idx] = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.EventsWritten)
	s.logger.Info("timeline: event updated", "timeline_id", timelineID, "event_id", eventID)
	return &ev, nil
}

// DeleteEvent removes the event. Unlike DeleteTimeline, a missing event is an error.
func (s *Service) DeleteEvent(ctx context.Context, timelineID, eventID string) error {
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		idx := findEvent(tl, eventID)
		if idx < 0 {
			return notFound("Event with id %s not found", eventID)
		}
		tl.Events = append(tl.Events[:idx], tl.Events[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	metrics.Inc(metrics.EventsWritten)
	s.logger.Info("timeline: event deleted", "timeline_id", timelineID, "event_id", eventID)
	return nil
}

// CreateEventType adds a new event type with a unique, non-empty name.
func (s *Service) CreateEventType(ctx context.Context, timelineID string, draft models.EventType) (*models.EventType, error) {
	var et models.EventType
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		var addErr error
		et, addErr = addEventType(tl, draft)
		return addErr
	})
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.EventTypesWritten)
	s.logger.Info("timeline: event type created", "timeline_id", timelineID, "name", et.Name)
	return &et, nil
}

// UpdateEventType changes the name and color of the type called oldName.
// Events of that type follow a rename in the same write.
func (s *Service) UpdateEventType(ctx context.Context, timelineID, oldName string, draft models.EventType) (*models.EventType, error) {
	var et models.EventType
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		var renameErr error
		et, renameErr = renameEventType(tl, oldName, draft)
		return renameErr
	})
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.EventTypesWritten)
	s.logger.Info("timeline: event type updated", "timeline_id", timelineID, "old_name", oldName, "name", et.Name)
	return &et, nil
}

// DeleteEventType removes the type called name if no event uses it.
func (s *Service) DeleteEventType(ctx context.Context, timelineID, name string) error {
	err := s.mutate(ctx, timelineID, func(tl *models.Timeline) error {
		return removeEventType(tl, name)
	})
	if err != nil {
		return err
	}
	metrics.Inc(metrics.EventTypesWritten)
	s.logger.Info("timeline: event type deleted", "timeline_id", timelineID, "name", name)
	return nil
}

// Stats aggregates counts over every timeline.
func (s *Service) Stats(ctx context.Context) (*models.TimelineStats, error) {
	tls, err := s.ListTimelines(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.TimelineStats{
		Timelines:    int64(len(tls)),
		EventsByType: make(map[string]int64),
	}
	for i := range tls {
		stats.Events += int64(len(tls[i].Events))
		stats.EventTypes += int64(len(tls[i].EventTypes))
		for _, ev := range tls[i].Events {
			stats.EventsByType[ev.Type]++
		}
	}
	return stats, nil
}

// --- helpers ---

// mutate runs fn on the freshly loaded document under the timeline's lock
// and writes the result back. Nothing is written when fn fails.
func (s *Service) mutate(ctx context.Context, id string, fn func(tl *models.Timeline) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tl, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(tl); err != nil {
		return s.ruleErr(err)
	}
	return s.save(ctx, *tl)
}

func (s *Service) load(ctx context.Context, id string) (*models.Timeline, error) {
	tl, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, timelineNotFound(id)
		}
		return nil, s.storageErr("loading timeline", err)
	}
	tl.Normalize()
	return tl, nil
}

func (s *Service) save(ctx context.Context, tl models.Timeline) error {
	if err := s.store.Upsert(ctx, tl); err != nil {
		return s.storageErr("saving timeline", err)
	}
	return nil
}

func (s *Service) ruleErr(err error) error {
	var re *RuleError
	if errors.As(err, &re) && !errors.Is(err, ErrNotFound) {
		metrics.Inc(metrics.RuleViolations)
		s.logger.Debug("timeline: rule violation", "error", err)
	}
	return err
}

func (s *Service) storageErr(op string, err error) error {
	metrics.Inc(metrics.StorageErrors)
	s.logger.Error("timeline: storage failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}
