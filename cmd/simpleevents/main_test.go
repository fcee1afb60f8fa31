package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

const seedJSON = `[
  {"id": "tl-a", "name": "Trip", "created_at": "2024-04-06T10:00:00Z",
   "event_types": [{"name": "Flight", "color": "#3B82F6"}],
   "events": [{"id": "ev-1", "type": "Flight", "note": "boarded", "time": "2024-04-06T11:00:00Z"}]},
  {"id": "tl-b", "name": "Garden", "createdAt": "2024-04-07T10:00:00Z"}
]`

// setupEnv points the CLI at a fresh data directory and isolates it from any
// user config.
func setupEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("SIMPLEEVENTS_STORAGE_BACKEND", backend)
	t.Setenv("SIMPLEEVENTS_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SIMPLEEVENTS_SQLITE_PATH", filepath.Join(dir, "data", "timelines.db"))
	t.Setenv("SIMPLEEVENTS_LOG_LEVEL", "info")
	t.Setenv("SIMPLEEVENTS_LOG_FORMAT", "text")
	t.Cleanup(func() { cfg = nil })
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ImportListExport(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := setupEnv(t, backend)

			out, err := run(t, seedJSON, "import", "--keep-ids")
			require.NoError(t, err, out)
			assert.Contains(t, out, "Imported 2/2 timelines")

			out, err = run(t, "", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "ID: tl-a")
			assert.Contains(t, out, "ID: tl-b")
			assert.Less(t, strings.Index(out, "tl-a"), strings.Index(out, "tl-b"))

			exportPath := filepath.Join(dir, "export.json")
			_, err = run(t, "", "export", "-o", exportPath)
			require.NoError(t, err)
			data, err := os.ReadFile(exportPath)
			require.NoError(t, err)
			var exported []models.Timeline
			require.NoError(t, json.Unmarshal(data, &exported))
			require.Len(t, exported, 2)
			assert.Equal(t, "tl-a", exported[0].ID)
			require.Len(t, exported[0].Events, 1)
			assert.Equal(t, "ev-1", exported[0].Events[0].ID)
		})
	}
}

func TestCLI_ImportCreatesFreshIDs(t *testing.T) {
	setupEnv(t, "file")

	out, err := run(t, seedJSON, "import")
	require.NoError(t, err, out)

	_, err = run(t, "", "get", "tl-a")
	assert.Error(t, err)

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "ID: tl-a")
	assert.Contains(t, out, "Trip")
}

func TestCLI_GetAndCSVExport(t *testing.T) {
	setupEnv(t, "file")
	_, err := run(t, seedJSON, "import", "--keep-ids")
	require.NoError(t, err)

	out, err := run(t, "", "get", "tl-a")
	require.NoError(t, err)
	var tl models.Timeline
	require.NoError(t, json.Unmarshal([]byte(out), &tl))
	assert.Equal(t, "Trip", tl.Name)

	out, err = run(t, "", "export", "--format", "csv", "--timeline", "tl-a")
	require.NoError(t, err)
	assert.Equal(t,
		"id,time,type,color,note,created_at\nev-1,2024-04-06T11:00:00Z,Flight,#3B82F6,boarded,\n",
		out)

	_, err = run(t, "", "export", "--format", "csv")
	assert.Error(t, err)
}

func TestCLI_ImportYAML(t *testing.T) {
	setupEnv(t, "file")
	in := "- id: tl-y\n  name: From YAML\n  created_at: 2024-04-06T10:00:00Z\n"

	out, err := run(t, in, "import", "--format", "yaml", "--keep-ids")
	require.NoError(t, err, out)

	out, err = run(t, "", "get", "tl-y")
	require.NoError(t, err)
	assert.Contains(t, out, "From YAML")
}

func TestCLI_ImportRejectsInvalidDocument(t *testing.T) {
	setupEnv(t, "file")
	in := `[{"id": "tl-x", "name": "Bad", "event_types": [{"name": "A"}, {"name": "A"}]}]`

	out, err := run(t, in, "import", "--keep-ids")
	assert.Error(t, err)
	assert.Contains(t, out, "Imported 0/1 timelines")
}

func TestCLI_StatsAndHealth(t *testing.T) {
	setupEnv(t, "file")
	_, err := run(t, seedJSON, "import", "--keep-ids")
	require.NoError(t, err)

	out, err := run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Timelines:   2")
	assert.Contains(t, out, "Events:      1")
	assert.Contains(t, out, "Flight")

	out, err = run(t, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Storage (file): OK")
	assert.Contains(t, out, "Documents: OK")
}

func TestCLI_InvalidConfig(t *testing.T) {
	setupEnv(t, "postgres")
	_, err := run(t, "", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "a b", truncate("a\nb", 5))
}
