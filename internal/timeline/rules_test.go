package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

func ruleFixture() *models.Timeline {
	return &models.Timeline{
		ID:   "tl",
		Name: "Trip",
		Events: []models.Event{
			{ID: "e1", Type: "Flight"},
			{ID: "e2", Type: "Hotel"},
			{ID: "e3", Type: "Flight"},
		},
		EventTypes: []models.EventType{
			{Name: "Flight", Color: "#3B82F6"},
			{Name: "Hotel", Color: "#10B981"},
			{Name: "Unused", Color: "#000000"},
		},
	}
}

func TestRules_RenameLeavesDocumentUntouchedOnConflict(t *testing.T) {
	tl := ruleFixture()
	orig := tl.Clone()

	_, err := renameEventType(tl, "Flight", models.EventType{Name: "Hotel"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, orig, *tl)
}

func TestRules_RenameCascades(t *testing.T) {
	tl := ruleFixture()

	et, err := renameEventType(tl, "Flight", models.EventType{Name: "Plane", Color: "#111"})
	require.NoError(t, err)
	assert.Equal(t, models.EventType{Name: "Plane", Color: "#111"}, et)
	assert.Equal(t, "Plane", tl.Events[0].Type)
	assert.Equal(t, "Hotel", tl.Events[1].Type)
	assert.Equal(t, "Plane", tl.Events[2].Type)
	assert.Equal(t, "Plane", tl.EventTypes[0].Name)
}

func TestRules_RemoveEventType(t *testing.T) {
	tl := ruleFixture()

	assert.ErrorIs(t, removeEventType(tl, "Hotel"), ErrFailedPrecondition)
	assert.ErrorIs(t, removeEventType(tl, "Nope"), ErrNotFound)

	require.NoError(t, removeEventType(tl, "Unused"))
	assert.Equal(t, []models.EventType{
		{Name: "Flight", Color: "#3B82F6"},
		{Name: "Hotel", Color: "#10B981"},
	}, tl.EventTypes)
}

func TestRules_AddEventType(t *testing.T) {
	tl := ruleFixture()

	_, err := addEventType(tl, models.EventType{Name: "Flight"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = addEventType(tl, models.EventType{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Names compare exactly; case variants are distinct types.
	_, err = addEventType(tl, models.EventType{Name: "flight"})
	require.NoError(t, err)
	assert.Len(t, tl.EventTypes, 4)
}

func TestRules_MergeTimelineKeepsProtectedFields(t *testing.T) {
	existing := *ruleFixture()
	existing.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	merged := mergeTimeline(existing, models.Timeline{
		ID:          "other",
		Name:        "New",
		Description: "Desc",
		CreatedAt:   time.Now(),
	})
	assert.Equal(t, "tl", merged.ID)
	assert.Equal(t, "New", merged.Name)
	assert.Equal(t, "Desc", merged.Description)
	assert.Equal(t, existing.CreatedAt, merged.CreatedAt)
	assert.Equal(t, existing.Events, merged.Events)
	assert.Equal(t, existing.EventTypes, merged.EventTypes)
}

func TestRules_MergeEventKeepsProtectedFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := models.Event{ID: "e1", Note: "old", Type: "A", CreatedAt: created}

	merged := mergeEvent(existing, models.Event{ID: "x", Note: "new", Type: "B", CreatedAt: time.Now()})
	assert.Equal(t, models.Event{ID: "e1", Note: "new", Type: "B", CreatedAt: created}, merged)
}

func TestRuleError_Unwrap(t *testing.T) {
	err := invalidArgument("Event type '%s' already exists", "X")
	assert.Equal(t, "Event type 'X' already exists", err.Error())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrNotFound)
}
