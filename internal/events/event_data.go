package events

import (
	"encoding/json"
	"time"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SignalUpdatedData contains data for SignalUpdated events
type SignalUpdatedData struct {
	RunID           string  `json:"run_id"`
	TradeDate       string  `json:"trade_date"`
	RiskProbability float64 `json:"risk_probability"`
	RiskLevel       string  `json:"risk_level"`
	Action          string  `json:"action"`
	Code            string  `json:"code"`
	Source          string  `json:"source"`
}

// NewSignalUpdatedData builds the payload from a signal.
func NewSignalUpdatedData(sig domain.Signal) *SignalUpdatedData {
	return &SignalUpdatedData{
		RunID:           sig.RunID,
		TradeDate:       sig.TradeDate,
		RiskProbability: sig.RiskProbability,
		RiskLevel:       string(sig.RiskLevel),
		Action:          sig.Action,
		Code:            sig.Code,
		Source:          string(sig.Source),
	}
}

// EventType returns the event type for SignalUpdatedData
func (d *SignalUpdatedData) EventType() EventType {
	return SignalUpdated
}

// PipelineCompletedData contains data for PipelineCompleted events
type PipelineCompletedData struct {
	RunID           string  `json:"run_id"`
	RowsScored      int     `json:"rows_scored"`
	RowsDropped     int     `json:"rows_dropped"`
	CrisisDays      int     `json:"crisis_days"`
	LatestDate      string  `json:"latest_date"`
	LatestScore     float64 `json:"latest_score"`
	TestMode        bool    `json:"test_mode"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// EventType returns the event type for PipelineCompletedData
func (d *PipelineCompletedData) EventType() EventType {
	return PipelineCompleted
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobName   string    `json:"job_name"`
	Status    string    `json:"status"` // "started", "completed", "failed"
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration,omitempty"` // seconds
	Timestamp time.Time `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// MarshalJSON customizes JSON serialization for Event so the typed Data
// payload is embedded inline.
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	// Marshal the data separately
	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Unmarshal data based on event type
	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case SignalUpdated:
			eventData = &SignalUpdatedData{}
		case PipelineCompleted:
			eventData = &PipelineCompletedData{}
		case JobStarted, JobCompleted, JobFailed:
			eventData = &JobStatusData{}
		default:
			// For unknown types, use raw map
			var rawData map[string]interface{}
			if err := json.Unmarshal(aux.Data, &rawData); err != nil {
				return err
			}
			e.Data = &GenericEventData{Type: aux.Type, Data: rawData}
			return nil
		}

		if err := json.Unmarshal(aux.Data, eventData); err != nil {
			return err
		}
		e.Data = eventData
	}

	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
