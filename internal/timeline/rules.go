package timeline

import (
	"strings"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

// The functions in this file enforce the document invariants:
//   - event type names are unique within a timeline
//   - an event type cannot be removed while an event uses its name
//   - renaming an event type renames the type of every event that used it
//   - ids and creation timestamps never change on update
//
// Each mutating rule runs all of its checks before touching the document,
// so a violation leaves the document exactly as it was loaded.

const msgEmptyTypeName = "Event type name cannot be empty"

func checkTypeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgument(msgEmptyTypeName)
	}
	return nil
}

func findEventType(tl *models.Timeline, name string) int {
	for i := range tl.EventTypes {
		if tl.EventTypes[i].Name == name {
			return i
		}
	}
	return -1
}

func findEvent(tl *models.Timeline, id string) int {
	for i := range tl.Events {
		if tl.Events[i].ID == id {
			return i
		}
	}
	return -1
}

func typeInUse(tl *models.Timeline, name string) bool {
	for i := range tl.Events {
		if tl.Events[i].Type == name {
			return true
		}
	}
	return false
}

// addEventType appends draft after checking its name is non-empty and unused.
func addEventType(tl *models.Timeline, draft models.EventType) (models.EventType, error) {
	if err := checkTypeName(draft.Name); err != nil {
		return models.EventType{}, err
	}
	if findEventType(tl, draft.Name) >= 0 {
		return models.EventType{}, invalidArgument("Event type '%s' already exists", draft.Name)
	}
	tl.EventTypes = append(tl.EventTypes, draft)
	return draft, nil
}

// renameEventType updates the type named oldName from draft and moves every
// event of type oldName over to draft.Name.
func renameEventType(tl *models.Timeline, oldName string, draft models.EventType) (models.EventType, error) {
	idx := findEventType(tl, oldName)
	if idx < 0 {
		return models.EventType{}, notFound("Event type '%s' not found", oldName)
	}
	if err := checkTypeName(draft.Name); err != nil {
		return models.EventType{}, err
	}
	if draft.Name != oldName && findEventType(tl, draft.Name) >= 0 {
		return models.EventType{}, invalidArgument("Event type '%s' already exists", draft.Name)
	}

	if draft.Name != oldName {
		for i := range tl.Events {
			if tl.Events[i].Type == oldName {
				tl.Events[i].Type = draft.Name
			}
		}
	}
	tl.EventTypes[idx].Name = draft.Name
	tl.EventTypes[idx].Color = draft.Color
	return tl.EventTypes[idx], nil
}

// removeEventType deletes the type called name unless an event still uses it.
func removeEventType(tl *models.Timeline, name string) error {
	idx := findEventType(tl, name)
	if idx < 0 {
		return notFound("Event type '%s' not found", name)
	}
	if typeInUse(tl, name) {
		return failedPrecondition("Cannot delete event type that is in use")
	}
	tl.EventTypes = append(tl.EventTypes[:idx], tl.EventTypes[idx+1:]...)
	return nil
}

// mergeTimeline takes name and description from draft and everything else
// from existing.
func mergeTimeline(existing models.Timeline, draft models.Timeline) models.Timeline {
	out := existing
	out.Name = draft.Name
	out.Description = draft.Description
	return out
}

// mergeEvent takes every field from draft except the id and creation time.
func mergeEvent(existing models.Event, draft models.Event) models.Event {
	out := draft
	out.ID = existing.ID
	out.CreatedAt = existing.CreatedAt
	return out
}

// validateEventTypes checks a whole set of event types for empty or repeated names.
func validateEventTypes(types []models.EventType) error {
	seen := make(map[string]struct{}, len(types))
	for _, et := range types {
		if err := checkTypeName(et.Name); err != nil {
			return err
		}
		if _, dup := seen[et.Name]; dup {
			return invalidArgument("Event type '%s' already exists", et.Name)
		}
		seen[et.Name] = struct{}{}
	}
	return nil
}

// validateEvents checks that every event has an id and no id repeats.
func validateEvents(events []models.Event) error {
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			return invalidArgument("Event id cannot be empty")
		}
		if _, dup := seen[ev.ID]; dup {
			return invalidArgument("Event with id %s appears more than once", ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
	return nil
}
