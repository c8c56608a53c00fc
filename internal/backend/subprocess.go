package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSubprocessTimeout is the wall-clock limit of one CLI invocation.
const DefaultSubprocessTimeout = 120 * time.Second

// authMarkers identify a CLI that exited because nobody is logged in.
var authMarkers = []string{"not logged in", "authentication", "login"}

// SubprocessBackend runs the claude CLI once per call.
// It holds no conversation state of its own; prior turns arrive in the
// Request and are rendered into the prompt.
type SubprocessBackend struct {
	cfg     SubprocessConfig
	procMgr *ProcessManager
	log     zerolog.Logger
}

// NewSubprocessBackend creates a CLI backend. pm may be nil.
func NewSubprocessBackend(cfg SubprocessConfig, pm *ProcessManager, log zerolog.Logger) *SubprocessBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSubprocessTimeout
	}
	return &SubprocessBackend{
		cfg:     cfg,
		procMgr: pm,
		log:     log.With().Str("backend", TypeCLI).Logger(),
	}
}

func (b *SubprocessBackend) Name() string { return TypeCLI }

// Ready checks that the configured executable exists and can be run.
func (b *SubprocessBackend) Ready() error {
	path := strings.TrimSpace(b.cfg.Path)
	if path == "" {
		return fmt.Errorf("%w: claude executable path is empty", ErrNotConfigured)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	if !isExecutableMode(info) {
		return fmt.Errorf("%w: %s is not an executable file", ErrNotConfigured, path)
	}
	return nil
}

// Close is a no-op: there is no long-lived process.
func (b *SubprocessBackend) Close() error {
	return nil
}

// Send spawns the CLI with the rendered prompt and classifies the outcome.
func (b *SubprocessBackend) Send(ctx context.Context, req Request) (string, error) {
	if err := b.Ready(); err != nil {
		return "", err
	}

	prompt := renderPrompt(req)

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	cmd := newCommand(callCtx, b.cfg.Path, buildArgs(prompt)...)
	cmd.Dir = b.cfg.WorkDir
	cmd.Env = buildEnv(os.Environ())

	b.log.Debug().
		Str("state", "spawning").
		Str("path", b.cfg.Path).
		Int("prompt_chars", len(prompt)).
		Msg("claude call")

	start := time.Now()
	out, err := executeCommand(callCtx, cmd, b.procMgr)
	output := strings.TrimSpace(string(out))
	elapsed := time.Since(start)

	if err != nil && callCtx.Err() != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			b.log.Debug().Str("state", "canceled").Dur("elapsed", elapsed).Msg("claude call")
			return "", fmt.Errorf("claude call canceled: %w", ctx.Err())
		}
		b.log.Warn().Str("state", "timed_out").Dur("timeout", b.cfg.Timeout).Msg("claude call killed")
		return "", fmt.Errorf("%w: no answer from claude within %s", ErrTimeout, b.cfg.Timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("running claude: %w", err)
		}
		code := exitErr.ExitCode()
		b.log.Debug().Str("state", "exited").Int("exit_code", code).Dur("elapsed", elapsed).Msg("claude call")
		return "", classifyExit(code, output)
	}

	b.log.Debug().Str("state", "exited").Int("exit_code", 0).Dur("elapsed", elapsed).Int("reply_chars", len(output)).Msg("claude call")

	if output == "" {
		return "", ErrEmptyResponse
	}
	return output, nil
}

// classifyExit maps a non-zero exit and its output to an error.
func classifyExit(code int, output string) error {
	lower := strings.ToLower(output)
	for _, marker := range authMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w (exit code %d)", ErrNotAuthenticated, code)
		}
	}
	return &ProcessError{ExitCode: code, Output: output}
}

// buildArgs selects single-prompt mode with plain text output.
// The prompt is always the final argument.
func buildArgs(prompt string) []string {
	return []string{"-p", "--output-format", "text", prompt}
}

// renderPrompt flattens a request into the single prompt argument.
func renderPrompt(req Request) string {
	var sb strings.Builder

	if strings.TrimSpace(req.System) != "" {
		sb.WriteString("[Instructions: ")
		sb.WriteString(req.System)
		sb.WriteString("]\n\n")
	}

	if len(req.Messages) > 1 {
		sb.WriteString("Previous conversation:\n\n")
		for _, msg := range req.Messages[:len(req.Messages)-1] {
			label := "User"
			if msg.Role == RoleAssistant {
				label = "Assistant"
			}
			sb.WriteString(label)
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		}
		sb.WriteString("Current message:\n\n")
	}

	sb.WriteString(req.Prompt())
	return sb.String()
}

// buildEnv derives the child environment from base. TERM and the colour
// switches are forced; HOME, USER, XDG_CONFIG_HOME and PATH are kept when
// present and defaulted otherwise.
func buildEnv(base []string) []string {
	values := make(map[string]string, len(base)+6)
	var order []string

	set := func(key, value string) {
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = value
	}
	setDefault := func(key, value string) {
		if values[key] == "" && value != "" {
			set(key, value)
		}
	}

	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		set(key, value)
	}

	home := values["HOME"]
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = dir
		}
	}
	setDefault("HOME", home)

	if values["USER"] == "" {
		if u, err := user.Current(); err == nil {
			setDefault("USER", u.Username)
		}
	}

	if home != "" {
		setDefault("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	}
	setDefault("PATH", defaultPath(home))

	set("TERM", "dumb")
	set("NO_COLOR", "1")
	set("FORCE_COLOR", "0")

	env := make([]string, 0, len(order))
	for _, key := range order {
		env = append(env, key+"="+values[key])
	}
	return env
}

func defaultPath(home string) string {
	path := "/usr/local/bin:/usr/bin:/bin"
	if home != "" {
		path += ":" + filepath.Join(home, ".local", "bin")
	}
	return path
}

// IsExecutable reports whether path names a regular file with an execute bit.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return isExecutableMode(info)
}

func isExecutableMode(info os.FileInfo) bool {
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
