package persistence

import (
	"context"

	"github.com/kdrezo/claude-bridge/internal/events"
	"github.com/rs/zerolog"
)

// Recorder journals finished calls from the event bus.
type Recorder struct {
	store Store
	log   zerolog.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log.With().Str("component", "journal").Logger()}
}

// Run records events from ch until ch is closed or ctx is done.
// Write failures are logged and do not stop the loop.
func (r *Recorder) Run(ctx context.Context, ch <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.Record(ctx, ev); err != nil {
				r.log.Warn().Err(err).Str("call_id", ev.CallID()).Msg("journal write failed")
			}
		}
	}
}

// Record stores ev if it marks the end of a call. Other events are ignored.
func (r *Recorder) Record(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.CallCompletedEvent:
		return r.store.SaveCall(ctx, Call{
			ID:          e.ID,
			Backend:     e.Backend,
			Stateful:    e.Stateful,
			PromptChars: e.PromptChars,
			ReplyChars:  e.ReplyChars,
			Outcome:     OutcomeOK,
			Duration:    e.Duration,
			CreatedAt:   e.Timestamp,
		})
	case events.CallFailedEvent:
		call := Call{
			ID:          e.ID,
			Backend:     e.Backend,
			Stateful:    e.Stateful,
			PromptChars: e.PromptChars,
			Outcome:     e.Kind,
			Duration:    e.Duration,
			CreatedAt:   e.Timestamp,
		}
		if call.Outcome == "" {
			call.Outcome = "unknown"
		}
		if e.Err != nil {
			call.Error = e.Err.Error()
		}
		return r.store.SaveCall(ctx, call)
	default:
		return nil
	}
}
