// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on the /debug/vars HTTP endpoint served by the API.
package metrics

import "expvar"

// Operation counters.
var (
	TimelinesCreated  = expvar.NewInt("simpleevents_timelines_created_total")
	TimelinesDeleted  = expvar.NewInt("simpleevents_timelines_deleted_total")
	EventsWritten     = expvar.NewInt("simpleevents_events_written_total")
	EventTypesWritten = expvar.NewInt("simpleevents_event_types_written_total")
	RuleViolations    = expvar.NewInt("simpleevents_rule_violations_total")
	StorageErrors     = expvar.NewInt("simpleevents_storage_errors_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
