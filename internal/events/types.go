package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	CallID() string
}

// Topic constants
const (
	TopicCall    = "call"
	TopicHistory = "history"
)

// Event type constants
const (
	EventTypeCallStarted    = "call.started"
	EventTypeCallCompleted  = "call.completed"
	EventTypeCallFailed     = "call.failed"
	EventTypeHistoryCleared = "history.cleared"
)

// CallStartedEvent is published when a bridge call is handed to a backend.
type CallStartedEvent struct {
	ID        string
	Backend   string
	Stateful  bool
	Timestamp time.Time
}

func (e CallStartedEvent) EventType() string { return EventTypeCallStarted }
func (e CallStartedEvent) CallID() string    { return e.ID }

// CallCompletedEvent is published when a call returns a reply.
// Only sizes are carried, never the text itself.
type CallCompletedEvent struct {
	ID          string
	Backend     string
	Stateful    bool
	PromptChars int
	ReplyChars  int
	Duration    time.Duration
	Timestamp   time.Time
}

func (e CallCompletedEvent) EventType() string { return EventTypeCallCompleted }
func (e CallCompletedEvent) CallID() string    { return e.ID }

// CallFailedEvent is published when a call fails.
type CallFailedEvent struct {
	ID          string
	Backend     string
	Stateful    bool
	PromptChars int
	Kind        string
	Err         error
	Duration    time.Duration
	Timestamp   time.Time
}

func (e CallFailedEvent) EventType() string { return EventTypeCallFailed }
func (e CallFailedEvent) CallID() string    { return e.ID }

// HistoryClearedEvent is published when a conversation is reset.
type HistoryClearedEvent struct {
	Dropped   int
	Timestamp time.Time
}

func (e HistoryClearedEvent) EventType() string { return EventTypeHistoryCleared }
func (e HistoryClearedEvent) CallID() string    { return "" }
