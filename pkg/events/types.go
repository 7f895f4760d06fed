package events

import "time"

// EventType identifies the kind of event emitted by the runtime.
type EventType string

const (
	EventWorkflowStart  EventType = "workflow.start"
	EventWorkflowEnd    EventType = "workflow.end"
	EventStageInvoke    EventType = "stage.invoke"
	EventStageRetry     EventType = "stage.retry"
	EventStagePassed    EventType = "stage.passed"
	EventStageHalted    EventType = "stage.halted"
	EventVerifyStart    EventType = "verify.start"
	EventVerifyResult   EventType = "verify.result"
	EventPrecheckResult EventType = "precheck.result"
)

// Event represents a single runtime event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Producer  string    `json:"producer,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent creates a new Event with the current timestamp.
func NewEvent(typ EventType, producer string, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		Producer:  producer,
		Data:      data,
	}
}
