package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

const (
	documentExt = ".json"

	// defaultListConcurrency bounds parallel document reads in List.
	defaultListConcurrency = 8
)

// FileStore implements Store with one pretty-printed JSON document per
// timeline, named <id>.json, inside a data directory.
type FileStore struct {
	dir         string
	concurrency int
	logger      *slog.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on EnsureReady.
// concurrency bounds parallel reads in List; values below 1 use the default.
func NewFileStore(dir string, concurrency int, logger *slog.Logger) *FileStore {
	if concurrency < 1 {
		concurrency = defaultListConcurrency
	}
	return &FileStore{dir: dir, concurrency: concurrency, logger: logger}
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+documentExt)
}

// EnsureReady creates the data directory and verifies that it accepts writes.
func (s *FileStore) EnsureReady(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", s.dir, err)
	}
	probe, err := os.CreateTemp(s.dir, ".probe-*.tmp")
	if err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", s.dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("removing probe file: %w", err)
	}
	return nil
}

// Get reads and decodes the document for id.
func (s *FileStore) Get(ctx context.Context, id string) (*models.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tl, err := s.readFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return tl, nil
}

// Upsert writes the complete document through a temp file and an atomic
// rename, so readers see either the old or the new document.
func (s *FileStore) Upsert(ctx context.Context, timeline models.Timeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidID(timeline.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, timeline.ID)
	}
	timeline.Normalize()

	data, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding timeline %s: %w", timeline.ID, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", s.dir, err)
	}
	if err := writeFileAtomic(s.path(timeline.ID), data); err != nil {
		return fmt.Errorf("writing timeline %s: %w", timeline.ID, err)
	}
	s.logger.Debug("file store: document written", "id", timeline.ID, "bytes", len(data))
	return nil
}

// Delete removes the document for id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting timeline %s: %w", id, err)
	}
	return nil
}

// List reads every document in the data directory in parallel.
// A missing directory is an empty store; an unreadable document is an error.
func (s *FileStore) List(ctx context.Context) ([]models.Timeline, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Timeline{}, nil
		}
		return nil, fmt.Errorf("reading data directory %s: %w", s.dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, documentExt) {
			continue
		}
		files = append(files, filepath.Join(s.dir, name))
	}

	out := make([]models.Timeline, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tl, readErr := s.readFile(file)
			if readErr != nil {
				return readErr
			}
			out[i] = *tl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortTimelines(out)
	return out, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) readFile(path string) (*models.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var tl models.Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	tl.Normalize()
	return &tl, nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it, and
// renames it over path. The directory is synced afterwards so the rename
// itself survives a crash.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Not every platform supports syncing a directory handle.
	if d, openErr := os.Open(dir); openErr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
