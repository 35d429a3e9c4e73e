// Package events provides the in-process event bus that fans pipeline
// and job activity out to subscribers (the WebSocket stream, log
// listeners). Publishing must never block a producer: handlers are
// expected to hand off to their own buffered channels and drop when full.
package events

import "time"

// EventType identifies a category of event.
type EventType string

const (
	// SignalUpdated - a new signal was produced (pipeline run or monitor tick)
	SignalUpdated EventType = "signal.updated"
	// PipelineCompleted - a full pipeline run finished successfully
	PipelineCompleted EventType = "pipeline.completed"
	// JobStarted - a scheduled job began executing
	JobStarted EventType = "job.started"
	// JobCompleted - a scheduled job finished without error
	JobCompleted EventType = "job.completed"
	// JobFailed - a scheduled job returned an error
	JobFailed EventType = "job.failed"
)

// AllEventTypes lists every event type, in a stable order. Used by
// subscribers that want the full stream.
func AllEventTypes() []EventType {
	return []EventType{
		SignalUpdated,
		PipelineCompleted,
		JobStarted,
		JobCompleted,
		JobFailed,
	}
}

// Event is the envelope delivered to subscribers and serialized to the
// WebSocket stream. Data carries the typed payload for the event type.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
