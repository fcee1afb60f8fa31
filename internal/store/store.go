package store

import (
	"context"
	"errors"
	"strings"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

// ErrNotFound is returned by Get and Delete when the requested timeline does not exist.
var ErrNotFound = errors.New("timeline not found")

// ErrInvalidID is returned by Upsert when a timeline id cannot name a document.
var ErrInvalidID = errors.New("invalid timeline id")

// Store defines whole-document persistence for timelines.
// Every write replaces the complete document keyed by its ID; a failed write
// leaves the previous document intact.
type Store interface {
	// EnsureReady prepares the backing storage (directory, schema) and verifies it is writable.
	EnsureReady(ctx context.Context) error

	// Get retrieves a single timeline by ID.
	Get(ctx context.Context, id string) (*models.Timeline, error)

	// Upsert writes the complete timeline document, replacing any previous version.
	Upsert(ctx context.Context, timeline models.Timeline) error

	// Delete removes a timeline by ID.
	Delete(ctx context.Context, id string) error

	// List returns every stored timeline ordered by creation time, then ID.
	// A document that cannot be read or decoded fails the whole call.
	List(ctx context.Context) ([]models.Timeline, error)

	// Close cleans up resources.
	Close() error
}

// ValidID reports whether id can be used as a document key. IDs double as
// file names, so separators and leading dots are rejected.
func ValidID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}
