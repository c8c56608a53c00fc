// Package bridge owns a conversation with the assistant and routes each call
// to the configured backend.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/events"
	"github.com/rs/zerolog"
)

// Bridge is safe for concurrent use. History grows only after a successful
// stateful call, one user/assistant pair at a time.
type Bridge struct {
	mu      sync.Mutex
	backend backend.Backend
	history []backend.Message
	epoch   uint64 // bumped by ClearHistory

	bus *events.EventBus
	log zerolog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithEventBus publishes call lifecycle events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(b *Bridge) { b.bus = bus }
}

// New creates a bridge with an empty history. be may be nil, in which case
// every call fails with backend.ErrNotConfigured until SetBackend is called.
func New(be backend.Backend, opts ...Option) *Bridge {
	b := &Bridge{
		backend: be,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SendMessage sends text with the current history and, on success, appends
// the exchange to it.
func (b *Bridge) SendMessage(ctx context.Context, text, system string) (string, error) {
	return b.call(ctx, text, system, true)
}

// SendMessageWithoutHistory sends text alone. History is neither read nor written.
func (b *Bridge) SendMessageWithoutHistory(ctx context.Context, text, system string) (string, error) {
	return b.call(ctx, text, system, false)
}

// History returns a copy of the conversation so far.
func (b *Bridge) History() []backend.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]backend.Message, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory drops the conversation. Replies to calls sent before the
// clear, async ones included, are returned to their callers but not recorded.
func (b *Bridge) ClearHistory() {
	b.mu.Lock()
	dropped := len(b.history)
	b.history = nil
	b.epoch++
	b.mu.Unlock()

	b.log.Debug().Int("dropped", dropped).Msg("history cleared")
	b.publish(events.TopicHistory, events.HistoryClearedEvent{
		Dropped:   dropped,
		Timestamp: time.Now(),
	})
}

// SetBackend swaps the backend used by subsequent calls. Calls in flight
// finish on the backend they started with.
func (b *Bridge) SetBackend(be backend.Backend) {
	b.mu.Lock()
	old := b.backend
	b.backend = be
	b.mu.Unlock()

	if old != nil && old != be {
		if err := old.Close(); err != nil {
			b.log.Warn().Err(err).Str("backend", old.Name()).Msg("closing previous backend")
		}
	}
}

// Backend returns the backend currently in use, or nil.
func (b *Bridge) Backend() backend.Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backend
}

// Ready reports whether a call made now could be served.
func (b *Bridge) Ready() error {
	be := b.Backend()
	if be == nil {
		return fmt.Errorf("%w: no backend selected", backend.ErrNotConfigured)
	}
	return be.Ready()
}

// Close releases the current backend.
func (b *Bridge) Close() error {
	if be := b.Backend(); be != nil {
		return be.Close()
	}
	return nil
}

func (b *Bridge) call(ctx context.Context, text, system string, stateful bool) (string, error) {
	return b.begin(text, system, stateful).run(ctx)
}

// exchange is one call, snapshotted at the moment it was sent.
type exchange struct {
	b        *Bridge
	id       string
	text     string
	system   string
	stateful bool
	start    time.Time
	be       backend.Backend
	epoch    uint64
	messages []backend.Message
}

// begin captures the backend, the history and the clear counter. It must run
// on the caller's goroutine so that a ClearHistory issued after the send
// also covers this call.
func (b *Bridge) begin(text, system string, stateful bool) *exchange {
	x := &exchange{
		b:        b,
		id:       uuid.NewString(),
		text:     text,
		system:   system,
		stateful: stateful,
		start:    time.Now(),
	}

	b.mu.Lock()
	x.be = b.backend
	x.epoch = b.epoch
	if stateful {
		x.messages = make([]backend.Message, len(b.history), len(b.history)+1)
		copy(x.messages, b.history)
	}
	b.mu.Unlock()
	return x
}

// run performs the I/O and records the pair if no clear happened since begin.
func (x *exchange) run(ctx context.Context) (string, error) {
	b := x.b
	name := ""
	if x.be != nil {
		name = x.be.Name()
	}
	log := b.log.With().Str("call_id", x.id).Str("backend", name).Bool("stateful", x.stateful).Logger()

	b.publish(events.TopicCall, events.CallStartedEvent{
		ID:        x.id,
		Backend:   name,
		Stateful:  x.stateful,
		Timestamp: x.start,
	})

	fail := func(err error) (string, error) {
		kind := backend.KindOf(err)
		log.Debug().Err(err).Str("kind", string(kind)).Dur("elapsed", time.Since(x.start)).Msg("call failed")
		b.publish(events.TopicCall, events.CallFailedEvent{
			ID:          x.id,
			Backend:     name,
			Stateful:    x.stateful,
			PromptChars: utf8.RuneCountInString(x.text),
			Kind:        string(kind),
			Err:         err,
			Duration:    time.Since(x.start),
			Timestamp:   time.Now(),
		})
		return "", err
	}

	if x.be == nil {
		return fail(fmt.Errorf("%w: no backend selected", backend.ErrNotConfigured))
	}
	if err := x.be.Ready(); err != nil {
		return fail(err)
	}

	messages := append(x.messages, backend.UserMessage(x.text))
	log.Debug().Int("messages", len(messages)).Msg("sending")

	reply, err := x.be.Send(ctx, backend.Request{System: x.system, Messages: messages})
	if err != nil {
		return fail(err)
	}

	if x.stateful {
		b.mu.Lock()
		recorded := b.epoch == x.epoch
		if recorded {
			b.history = append(b.history, backend.UserMessage(x.text), backend.AssistantMessage(reply))
		}
		b.mu.Unlock()
		if !recorded {
			log.Debug().Msg("history cleared since send, reply not recorded")
		}
	}

	log.Debug().Int("reply_chars", len(reply)).Dur("elapsed", time.Since(x.start)).Msg("call completed")
	b.publish(events.TopicCall, events.CallCompletedEvent{
		ID:          x.id,
		Backend:     name,
		Stateful:    x.stateful,
		PromptChars: utf8.RuneCountInString(x.text),
		ReplyChars:  utf8.RuneCountInString(reply),
		Duration:    time.Since(x.start),
		Timestamp:   time.Now(),
	})
	return reply, nil
}

func (b *Bridge) publish(topic string, event events.Event) {
	if b.bus != nil {
		b.bus.Publish(topic, event)
	}
}
