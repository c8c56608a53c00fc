package main

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/bridge"
	"github.com/kdrezo/claude-bridge/internal/config"
	"github.com/kdrezo/claude-bridge/internal/events"
	"github.com/kdrezo/claude-bridge/internal/persistence"
)

// session is the wiring behind one command: preferences, backend, bridge,
// event bus and the optional call journal.
type session struct {
	settings *config.Settings
	bus      *events.EventBus
	bridge   *bridge.Bridge
	store    persistence.Store
	log      zerolog.Logger
}

// openSession loads preferences and builds the bridge. The journal is best
// effort: when it cannot be opened the session runs without it.
func (a *app) openSession(ctx context.Context, log zerolog.Logger) (*session, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(config.Resolve(settings), a.pm, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus()
	s := &session{
		settings: settings,
		bus:      bus,
		bridge:   bridge.New(be, bridge.WithLogger(log), bridge.WithEventBus(bus)),
		log:      log,
	}

	store, err := openJournal(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("call journal disabled")
	} else {
		s.store = store
	}
	return s, nil
}

func openJournal(ctx context.Context) (*persistence.SQLiteStore, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return persistence.NewSQLiteStore(ctx, filepath.Join(dir, "journal.db"))
}

// run executes fn with the journal recorder alongside it. The bus is closed
// when fn returns, which lets the recorder drain what is left and stop.
func (s *session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.store != nil {
		calls := s.bus.Subscribe(events.TopicCall, events.DefaultBuffer)
		rec := persistence.NewRecorder(s.store, s.log)
		// Writes use a fresh context so events of a cancelled run still land.
		g.Go(func() error { return rec.Run(context.WithoutCancel(ctx), calls) })
	}

	g.Go(func() error {
		defer s.bus.Close()
		return fn(gctx)
	})

	return g.Wait()
}

// rebuild reloads preferences and swaps the bridge backend. History is
// kept.
func (s *session) rebuild(a *app) (*config.Settings, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	be, err := backend.New(config.Resolve(settings), a.pm, s.log)
	if err != nil {
		return nil, err
	}
	s.bridge.SetBackend(be)
	return settings, nil
}

// withSession opens a session for cmd, runs fn inside it and closes it.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := a.openSession(ctx, a.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer s.close()

	return s.run(ctx, func(ctx context.Context) error {
		return fn(ctx, s)
	})
}

func (s *session) close() {
	if err := s.bridge.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing backend")
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Debug().Err(err).Msg("closing journal")
		}
	}
}
