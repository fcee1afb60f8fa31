package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "timelines.db")
	created := time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)

	s, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, newTestTimeline("tl-1", created)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "tl-1")
	require.NoError(t, err)
	assert.Equal(t, "Trip tl-1", got.Name)
	require.Len(t, got.Events, 1)
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "timelines.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	// Applying the schema again is a no-op.
	require.NoError(t, s.EnsureReady(context.Background()))
}

func TestSQLiteStore_ListFailsOnCorruptDocument(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "timelines.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO timelines (id, name, document, created_at, updated_at) VALUES ('bad', '', '{oops', '', '')`)
	require.NoError(t, err)

	_, err = s.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
