// Package eventbus is an in-process progress-event bus.
//
// The orchestrator publishes workflow progress; the HTTP server subscribes
// per workflow and relays events to clients as server-sent events.
// Thread-safe fan-out; slow subscribers drop events rather than blocking
// the publisher.
package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates the caller-visible event kinds.
type Type string

const (
	// TypeStatus reports a stage transition or progress note.
	TypeStatus Type = "status"
	// TypeCode carries the current candidate source.
	TypeCode Type = "code"
	// TypeComplete reports the successful terminal state.
	TypeComplete Type = "complete"
	// TypeError reports the failed terminal state.
	TypeError Type = "error"
)

// Event is one progress notification for one workflow.
type Event struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Type       Type           `json:"type"`
	Stage      string         `json:"stage,omitempty"`
	Message    string         `json:"message,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	At         time.Time      `json:"at"`
}

// NewEvent creates an event with identity and timestamp filled in.
func NewEvent(workflowID string, typ Type, stage, message string) Event {
	return Event{
		ID:         "evt_" + uuid.New().String()[:16],
		WorkflowID: workflowID,
		Type:       typ,
		Stage:      stage,
		Message:    message,
		At:         time.Now().UTC(),
	}
}

// IsTerminal reports whether no further events follow for the workflow.
func (e Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}
