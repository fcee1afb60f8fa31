package store

import (
	"sort"

	"github.com/ajitpratap0/simpleevents/internal/models"
)

// sortTimelines orders timelines by creation time, breaking ties by ID.
func sortTimelines(tls []models.Timeline) {
	sort.Slice(tls, func(i, j int) bool {
		if !tls[i].CreatedAt.Equal(tls[j].CreatedAt) {
			return tls[i].CreatedAt.Before(tls[j].CreatedAt)
		}
		return tls[i].ID < tls[j].ID
	})
}
