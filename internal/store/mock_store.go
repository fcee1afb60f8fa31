package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu        sync.RWMutex
	timelines map[string]models.Timeline
	upserts   int
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		timelines: make(map[string]models.Timeline),
	}
}

// EnsureReady is a no-op for the mock store.
func (m *MockStore) EnsureReady(_ context.Context) error {
	return nil
}

// Get retrieves a single timeline by ID.
func (m *MockStore) Get(_ context.Context, id string) (*models.Timeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tl, ok := m.timelines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// Deep-copy so callers cannot mutate stored data.
	out := tl.Clone()
	return &out, nil
}

// Upsert stores a deep copy of the timeline.
func (m *MockStore) Upsert(_ context.Context, timeline models.Timeline) error {
	if !ValidID(timeline.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, timeline.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelines[timeline.ID] = timeline.Clone()
	m.upserts++
	return nil
}

// Delete removes a timeline by ID.
func (m *MockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.timelines[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.timelines, id)
	return nil
}

// List returns all timelines ordered by creation time.
func (m *MockStore) List(_ context.Context) ([]models.Timeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.Timeline, 0, len(m.timelines))
	for _, tl := range m.timelines {
		all = append(all, tl.Clone())
	}
	sortTimelines(all)
	return all, nil
}

// Upserts reports how many writes the store has accepted.
func (m *MockStore) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
