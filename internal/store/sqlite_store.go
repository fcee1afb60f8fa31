package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no schema
// 1 - timelines table with created_at index
const currentSchemaVersion = 1

// sortableTime is fixed width so created_at orders lexically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store with one row per timeline holding the full
// JSON document. Each Upsert is a single statement, so a document is
// replaced completely or not at all.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", path, err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.EnsureReady(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureReady applies pragmas and schema migrations. It is idempotent.
func (s *SQLiteStore) EnsureReady(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("setting user_version: %w", err)
		}
		s.logger.Debug("sqlite store: schema migrated", "from", version, "to", currentSchemaVersion)
	}
	return nil
}

// Get loads the document for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Timeline, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM timelines WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying timeline %s: %w", id, err)
	}
	return decodeDocument(id, doc)
}

// Upsert inserts or replaces the document keyed by timeline.ID.
func (s *SQLiteStore) Upsert(ctx context.Context, timeline models.Timeline) error {
	if !ValidID(timeline.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, timeline.ID)
	}
	timeline.Normalize()

	doc, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("encoding timeline %s: %w", timeline.ID, err)
	}

	now := time.Now().UTC().Format(sortableTime)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO timelines (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`,
		timeline.ID,
		timeline.Name,
		string(doc),
		timeline.CreatedAt.UTC().Format(sortableTime),
		now,
	)
	if err != nil {
		return fmt.Errorf("writing timeline %s: %w", timeline.ID, err)
	}
	return nil
}

// Delete removes the row for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting timeline %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting timeline %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns every stored timeline.
func (s *SQLiteStore) List(ctx context.Context) ([]models.Timeline, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM timelines ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing timelines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.Timeline{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning timeline row: %w", err)
		}
		tl, err := decodeDocument(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *tl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing timelines: %w", err)
	}

	sortTimelines(out)
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func decodeDocument(id, doc string) (*models.Timeline, error) {
	var tl models.Timeline
	if err := json.Unmarshal([]byte(doc), &tl); err != nil {
		return nil, fmt.Errorf("decoding timeline %s: %w", id, err)
	}
	tl.Normalize()
	return &tl, nil
}
