package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kdrezo/claude-bridge/internal/assist"
	"github.com/kdrezo/claude-bridge/internal/config"
	"github.com/kdrezo/claude-bridge/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var file, lines, lang string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat panel",
		Long: `Open an interactive conversation with Claude.
With --file the input box starts with an analysis request for that file
(or the --lines range of it). Preference changes are picked up while the
panel is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := ""
			if file != "" {
				code, err := readSelection(file, lines)
				if err != nil {
					return err
				}
				initial = assist.AnalysisMessage(code, languageFor(lang, file), filepath.Base(file))
			}
			return a.runChat(cmd.Context(), initial)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "file to send to the chat")
	cmd.Flags().StringVar(&lines, "lines", "", "line range of --file to send")
	cmd.Flags().StringVar(&lang, "lang", "", "language of --file (detected by default)")
	return cmd
}

// runChat runs the panel next to the preference watcher until the user
// quits or ctx is done.
func (a *app) runChat(ctx context.Context, initial string) error {
	log, closeLog := a.chatLogger()
	defer closeLog()

	s, err := a.openSession(ctx, log)
	if err != nil {
		return err
	}
	defer s.close()

	global, err := a.globalPath()
	if err != nil {
		return err
	}
	// The watcher only sees files in directories that exist.
	if err := os.MkdirAll(filepath.Dir(global), 0o700); err != nil {
		log.Warn().Err(err).Msg("creating preferences directory")
	}

	return s.run(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		watchCtx, stopWatch := context.WithCancel(gctx)

		model := tui.New(tui.Options{
			Context:      gctx,
			Bridge:       s.bridge,
			Bus:          s.bus,
			Settings:     s.settings,
			GlobalPath:   global,
			InitialInput: initial,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(gctx))

		g.Go(func() error {
			return config.Watch(watchCtx, []string{global, a.projectPath()}, func() {
				settings, err := s.rebuild(a)
				if err != nil {
					log.Warn().Err(err).Msg("reloading preferences")
					return
				}
				log.Info().Str("backend", settings.Backend).Msg("preferences reloaded")
				p.Send(tui.SettingsChangedMsg{Settings: settings})
			})
		})

		g.Go(func() error {
			defer stopWatch()
			if _, err := p.Run(); err != nil {
				if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("chat panel: %w", err)
			}
			return nil
		})

		return g.Wait()
	})
}

// chatLogger writes to ~/.claude-bridge/chat.log, since stderr belongs to
// the panel while it runs.
func (a *app) chatLogger() (zerolog.Logger, func()) {
	dir, err := config.Dir()
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	return a.logger(f), func() { f.Close() }
}
