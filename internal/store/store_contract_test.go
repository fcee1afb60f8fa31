package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTimeline(id string, created time.Time) models.Timeline {
	return models.Timeline{
		ID:          id,
		Name:        "Trip " + id,
		Description: "test timeline",
		CreatedAt:   created,
		Events: []models.Event{
			{ID: id + "-e1", Note: "boarded", Type: "Flight", Time: created.Add(time.Hour), CreatedAt: created},
		},
		EventTypes: []models.EventType{{Name: "Flight", Color: "#3B82F6"}},
	}
}

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	fs := NewFileStore(filepath.Join(t.TempDir(), "data"), 4, testLogger())
	require.NoError(t, fs.EnsureReady(ctx))

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "timelines.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		"mock":   NewMockStore(),
		"file":   fs,
		"sqlite": sq,
	}
}

func TestStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tl := newTestTimeline("tl-1", created)
			require.NoError(t, s.Upsert(ctx, tl))

			got, err := s.Get(ctx, "tl-1")
			require.NoError(t, err)
			assert.Equal(t, tl.Name, got.Name)
			assert.Equal(t, tl.Description, got.Description)
			assert.True(t, tl.CreatedAt.Equal(got.CreatedAt))
			require.Len(t, got.Events, 1)
			assert.Equal(t, "tl-1-e1", got.Events[0].ID)
			assert.Equal(t, tl.EventTypes, got.EventTypes)
		})
	}
}

func TestStore_UpsertReplacesWholeDocument(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tl := newTestTimeline("tl-1", created)
			require.NoError(t, s.Upsert(ctx, tl))

			tl.Name = "Renamed"
			tl.Events = nil
			tl.EventTypes = nil
			require.NoError(t, s.Upsert(ctx, tl))

			got, err := s.Get(ctx, "tl-1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Name)
			assert.NotNil(t, got.Events)
			assert.Empty(t, got.Events)
			assert.NotNil(t, got.EventTypes)
			assert.Empty(t, got.EventTypes)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, newTestTimeline("tl-1", created)))
			require.NoError(t, s.Delete(ctx, "tl-1"))

			_, err := s.Get(ctx, "tl-1")
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.Delete(ctx, "tl-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ListOrdered(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.Upsert(ctx, newTestTimeline("c", base.Add(2*time.Hour))))
			require.NoError(t, s.Upsert(ctx, newTestTimeline("a", base)))
			require.NoError(t, s.Upsert(ctx, newTestTimeline("b", base)))

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a", all[0].ID)
			assert.Equal(t, "b", all[1].ID)
			assert.Equal(t, "c", all[2].ID)
		})
	}
}

func TestStore_UpsertInvalidID(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "../escape", ".hidden", `a\b`} {
				err := s.Upsert(ctx, models.Timeline{ID: id, Name: "bad"})
				assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
			}
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, newTestTimeline("tl-1", created)))

			got, err := s.Get(ctx, "tl-1")
			require.NoError(t, err)
			got.Events[0].Type = "Mutated"
			got.EventTypes[0].Name = "Mutated"

			again, err := s.Get(ctx, "tl-1")
			require.NoError(t, err)
			assert.Equal(t, "Flight", again.Events[0].Type)
			assert.Equal(t, "Flight", again.EventTypes[0].Name)
		})
	}
}

func TestStore_ConcurrentUpsertsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			const n = 20
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.Upsert(ctx, newTestTimeline(fmt.Sprintf("tl-%02d", i), created))
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			all, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, n)
		})
	}
}
