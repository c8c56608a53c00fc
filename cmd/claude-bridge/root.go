package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/config"
)

// app holds the global flags and the state shared by every sub-command.
type app struct {
	configPath        string
	projectConfigPath string
	backendOverride   string
	verbose           bool

	pm *backend.ProcessManager
}

func newRootCmd(pm *backend.ProcessManager) *cobra.Command {
	a := &app{pm: pm}

	root := &cobra.Command{
		Use:   "claude-bridge",
		Short: "Ask Claude about code from the terminal",
		Long: `claude-bridge talks to Claude through the Claude CLI (your subscription)
or the Anthropic HTTP API.

Examples:
  claude-bridge ask "what does EINTR mean?"
  git diff | claude-bridge ask --system "Review this diff"
  claude-bridge explain main.go --lines 10:40
  claude-bridge generate "a function that reverses a slice" --lang Go
  claude-bridge chat
  claude-bridge config set backend http`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "global preferences file (default ~/.claude-bridge/config.json)")
	flags.StringVar(&a.projectConfigPath, "project-config", "", "project preferences file (default .claude-bridge/config.json)")
	flags.StringVar(&a.backendOverride, "backend", "", `backend to use for this run: "cli" or "http"`)
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newAskCmd(a),
		newExplainCmd(a),
		newGenerateCmd(a),
		newChatCmd(a),
		newConfigCmd(a),
		newLogCmd(a),
	)
	return root
}

// globalPath returns the --config value or the conventional location.
func (a *app) globalPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GlobalPath()
}

func (a *app) projectPath() string {
	if a.projectConfigPath != "" {
		return a.projectConfigPath
	}
	return config.ProjectPath()
}

// loadSettings reads the effective preferences, including --backend.
func (a *app) loadSettings() (*config.Settings, error) {
	global, err := a.globalPath()
	if err != nil {
		return nil, err
	}
	s, err := config.Load(global, a.projectPath())
	if err != nil {
		return nil, err
	}
	if a.backendOverride != "" {
		if err := config.Set(s, "backend", a.backendOverride); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// logger writes human-readable logs to w: warnings only, or everything
// with --verbose.
func (a *app) logger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
