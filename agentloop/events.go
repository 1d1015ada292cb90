package agentloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventSessionStart   EventKind = "session_start"
	EventSessionEnd     EventKind = "session_end"
	EventModelRequest   EventKind = "model_request"
	EventModelResponse  EventKind = "model_response"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallEnd    EventKind = "tool_call_end"
	EventIssueReported  EventKind = "issue_reported"
	EventFinishDeferred EventKind = "finish_deferred"
	EventNudge          EventKind = "nudge"
	EventContextPruned  EventKind = "context_pruned"
	EventLoopDetection  EventKind = "loop_detection"
	EventWarning        EventKind = "warning"
	EventError          EventKind = "error"
)

// SessionEvent is one progress notification from an audit.
type SessionEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter carries the events of any number of sessions to the host
// through one buffered channel. Publishing never blocks the loop: events
// that do not fit are dropped and counted. A nil *EventEmitter discards
// everything.
type EventEmitter struct {
	ch      chan SessionEvent
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewEventEmitter creates an emitter. A non-positive size uses 256.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{ch: make(chan SessionEvent, bufferSize)}
}

func (e *EventEmitter) publish(ev SessionEvent) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the channel. It is closed by Close.
func (e *EventEmitter) Events() <-chan SessionEvent {
	return e.ch
}

// Dropped counts events discarded because the channel was full.
func (e *EventEmitter) Dropped() int64 {
	if e == nil {
		return 0
	}
	return e.dropped.Load()
}

// Close closes the channel. Later events are discarded. Safe to call twice.
func (e *EventEmitter) Close() {
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

// sessionEvents stamps events with the ID of the session emitting them.
type sessionEvents struct {
	bus *EventEmitter
	id  string
}

func (s sessionEvents) Emit(kind EventKind, data map[string]any) {
	s.bus.publish(SessionEvent{Kind: kind, Timestamp: time.Now(), SessionID: s.id, Data: data})
}
