package workflow

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart        EventKind = "run_start"
	EventRunEnd          EventKind = "run_end"
	EventPhaseStart      EventKind = "phase_start"
	EventPhaseEnd        EventKind = "phase_end"
	EventAttemptRecorded EventKind = "attempt_recorded"
	EventStallDetected   EventKind = "stall_detected"
	EventWarning         EventKind = "warning"
)

// Event is a typed event emitted while a run progresses.
type Event struct {
	Kind       EventKind      `json:"kind"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers events to the host application via a channel. One
// emitter may be shared by concurrent runs.
type EventEmitter struct {
	ch      chan Event
	closed  bool
	dropped int
	mu      sync.Mutex
}

// NewEventEmitter creates an emitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit sends an event without blocking. Events are dropped when the buffer
// is full or the emitter is closed.
func (e *EventEmitter) Emit(workflowID string, kind EventKind, data map[string]any) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:       kind,
		Timestamp:  time.Now(),
		WorkflowID: workflowID,
		Data:       data,
	}
	select {
	case e.ch <- event:
	default:
		e.dropped++
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (e *EventEmitter) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
