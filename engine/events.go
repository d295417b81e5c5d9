package engine

import (
	"sync"
	"time"
)

// EventKind identifies what an Event describes.
type EventKind string

const (
	EventRunStart       EventKind = "run_start"
	EventRunEnd         EventKind = "run_end"
	EventIterationStart EventKind = "iteration_start"
	EventIterationEnd   EventKind = "iteration_end"
	EventServiceCall    EventKind = "service_call"
	EventAssistantText  EventKind = "assistant_text"
	EventToolStart      EventKind = "tool_start"
	EventToolEnd        EventKind = "tool_end"
	EventRoundLimit     EventKind = "round_limit"
	EventLoopDetected   EventKind = "loop_detected"
	EventCompletion     EventKind = "completion"
	EventChecks         EventKind = "checks"
	EventCommit         EventKind = "commit"
	EventPaused         EventKind = "paused"
	EventResumed        EventKind = "resumed"
	EventAborted        EventKind = "aborted"
	EventError          EventKind = "error"
)

// Event is one observable step of a run, consumed by the CLI renderer.
type Event struct {
	Kind      EventKind
	RunID     string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Emitter fans run events out to a single consumer over a buffered channel.
// Emit never blocks: when the consumer falls behind, events are dropped.
// All methods are safe on a nil receiver, which disables emission.
type Emitter struct {
	runID  string
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewEmitter creates an Emitter with the given channel buffer.
func NewEmitter(runID string, buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Emitter{runID: runID, ch: make(chan Event, buffer)}
}

// Emit enqueues an event if there is room. Drops silently when the buffer
// is full or the emitter is closed.
func (e *Emitter) Emit(kind EventKind, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{Kind: kind, RunID: e.runID, Timestamp: time.Now(), Data: data}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the consumer side of the event stream.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Close ends the stream. Safe to call more than once.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
