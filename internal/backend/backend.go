package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Backend is one way of getting a reply from the assistant.
type Backend interface {
	// Name returns the backend type identifier ("http" or "cli").
	Name() string

	// Ready reports whether the current configuration can serve a call.
	// The check runs on every call; the result is never cached.
	Ready() error

	// Send performs a single round trip and returns the reply text.
	Send(ctx context.Context, req Request) (string, error)

	// Close releases idle resources held by the backend.
	Close() error
}

// New creates the backend selected by cfg.Type.
// The ProcessManager is only used by the CLI backend and may be nil.
func New(cfg Config, pm *ProcessManager, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case TypeHTTP:
		return NewHTTPBackend(cfg.HTTP, log), nil
	case TypeCLI:
		return NewSubprocessBackend(cfg.Subprocess, pm, log), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}
