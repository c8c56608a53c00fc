package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/bridge"
	"github.com/kdrezo/claude-bridge/internal/config"
	"github.com/kdrezo/claude-bridge/internal/events"
)

// echoBackend answers "echo: <last message>".
type echoBackend struct {
	readyErr error
	systems  chan string
}

func (e *echoBackend) Name() string { return backend.TypeCLI }
func (e *echoBackend) Ready() error { return e.readyErr }
func (e *echoBackend) Close() error { return nil }
func (e *echoBackend) Send(ctx context.Context, req backend.Request) (string, error) {
	if e.systems != nil {
		e.systems <- req.System
	}
	return "echo: " + req.Messages[len(req.Messages)-1].Content, nil
}

// drain runs cmd and any batched commands, returning their messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// findCompletion returns the completion the dispatcher queued for the
// event loop.
func findCompletion(t *testing.T, msgs []tea.Msg) uiCall {
	t.Helper()
	for _, msg := range msgs {
		if fn, ok := msg.(uiCall); ok {
			return fn
		}
	}
	t.Fatalf("no completion among %d messages", len(msgs))
	return nil
}

func newPane(be backend.Backend) (ChatPaneModel, *bridge.Bridge) {
	b := bridge.New(be)
	pane := NewChatPaneModel(context.Background(), b, "")
	pane.SetSize(80, 30)
	return pane, b
}

func ctrlS() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyCtrlS} }

func TestChatPane_SubmitShowsReply(t *testing.T) {
	pane, b := newPane(&echoBackend{})

	pane.SetInput("  hello  ")
	pane, cmd := pane.Update(ctrlS())
	require.NotNil(t, cmd)
	assert.Equal(t, 1, pane.InFlight())
	assert.Empty(t, pane.input.Value(), "input is reset after send")

	pane, _ = pane.Update(findCompletion(t, drain(cmd)))
	assert.Zero(t, pane.InFlight())
	require.Len(t, pane.transcript, 2)
	assert.Equal(t, entry{role: backend.RoleUser, text: "hello"}, pane.transcript[0])
	assert.Equal(t, entry{role: backend.RoleAssistant, text: "echo: hello"}, pane.transcript[1])
	assert.Len(t, b.History(), 2)
}

func TestChatPane_BlankInputDoesNothing(t *testing.T) {
	pane, b := newPane(&echoBackend{})

	pane.SetInput(" \n\t")
	pane, cmd := pane.Update(ctrlS())
	assert.Nil(t, cmd)
	assert.Zero(t, pane.InFlight())
	assert.Empty(t, pane.transcript)
	assert.Empty(t, b.History())
}

func TestChatPane_FailureShowsError(t *testing.T) {
	pane, b := newPane(&echoBackend{readyErr: fmt.Errorf("%w: no API key", backend.ErrNotConfigured)})

	pane.SetInput("hello")
	pane, cmd := pane.Update(ctrlS())
	pane, _ = pane.Update(findCompletion(t, drain(cmd)))
	require.Len(t, pane.transcript, 2)
	last := pane.transcript[1]
	assert.True(t, last.failed)
	assert.Contains(t, last.text, "no API key")
	assert.Contains(t, last.text, "ctrl+o")
	assert.Empty(t, b.History())
}

func TestChatPane_ClearDropsLateReply(t *testing.T) {
	pane, b := newPane(&echoBackend{})

	pane.SetInput("hello")
	pane, cmd := pane.Update(ctrlS())
	pane, _ = pane.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, pane.transcript)

	pane, _ = pane.Update(findCompletion(t, drain(cmd)))
	assert.Empty(t, pane.transcript, "reply to a cleared conversation is not shown")
	assert.Zero(t, pane.InFlight())
	assert.Empty(t, b.History())
}

// A message sent after a clear starts a fresh conversation even while an
// older reply is still on its way.
func TestChatPane_ClearThenSendStartsFresh(t *testing.T) {
	pane, b := newPane(&echoBackend{})

	pane.SetInput("old")
	pane, oldCmd := pane.Update(ctrlS())
	pane, _ = pane.Update(tea.KeyMsg{Type: tea.KeyCtrlL})

	pane, _ = pane.Update(findCompletion(t, drain(oldCmd)))
	pane.SetInput("new")
	pane, newCmd := pane.Update(ctrlS())
	pane, _ = pane.Update(findCompletion(t, drain(newCmd)))

	require.Len(t, pane.transcript, 2)
	assert.Equal(t, "echo: new", pane.transcript[1].text)
	assert.Equal(t, []backend.Message{
		backend.UserMessage("new"),
		backend.AssistantMessage("echo: new"),
	}, b.History())
}

func TestChatPane_SendsSystemPrompt(t *testing.T) {
	be := &echoBackend{systems: make(chan string, 1)}
	pane, _ := newPane(be)
	pane.SetSystem("Respond in French.")

	pane.SetInput("bonjour")
	_, cmd := pane.Update(ctrlS())
	findCompletion(t, drain(cmd))

	select {
	case got := <-be.systems:
		assert.Equal(t, "Respond in French.", got)
	case <-time.After(time.Second):
		t.Fatal("backend was not called")
	}
}

func TestStatusBar_FollowsEvents(t *testing.T) {
	bar := NewStatusBarModel("http")

	bar, _ = bar.Update(events.CallStartedEvent{ID: "a", Backend: "cli"})
	bar, _ = bar.Update(events.CallStartedEvent{ID: "b", Backend: "cli"})
	assert.Equal(t, 2, bar.running)
	assert.Equal(t, "cli", bar.backend)

	bar, _ = bar.Update(events.CallCompletedEvent{ID: "a", Duration: time.Second})
	bar, _ = bar.Update(events.CallFailedEvent{ID: "b", Kind: "timeout", Err: errors.New("backend timed out")})
	assert.Zero(t, bar.running)
	assert.Equal(t, 1, bar.completed)
	assert.Equal(t, 1, bar.failed)
	assert.Equal(t, "timeout", bar.lastError)

	bar, _ = bar.Update(events.HistoryClearedEvent{Dropped: 4})
	assert.Equal(t, "cleared 4 messages", bar.notice)
	assert.Contains(t, bar.View(), "backend: cli")
}

func TestSettingsPane_ApplySaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	pane := NewSettingsPaneModel(path)
	require.NoError(t, pane.err)

	pane.backendType = backend.TypeHTTP
	pane.apiKey = "sk-ant-test"
	pane.model = "claude-opus-4-1"
	pane.maxTokens = "2048"
	pane.timeoutSeconds = "30"
	pane.responseLanguage = "German"

	s, err := pane.apply()
	require.NoError(t, err)
	assert.Equal(t, backend.TypeHTTP, s.Backend)

	loaded, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, backend.TypeHTTP, loaded.Backend)
	assert.Equal(t, "sk-ant-test", loaded.HTTP.APIKey)
	assert.Equal(t, "claude-opus-4-1", loaded.HTTP.Model)
	assert.Equal(t, 2048, loaded.HTTP.MaxTokens)
	assert.Equal(t, 30, loaded.CLI.TimeoutSeconds)
	assert.Equal(t, "German", loaded.ResponseLanguage)
}

func TestSettingsPane_ApplyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	pane := NewSettingsPaneModel(path)

	pane.timeoutSeconds = "0"
	_, err := pane.apply()
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestSettingsPane_IgnoresEnvironmentKey(t *testing.T) {
	t.Setenv(config.EnvAPIKeyAlt, "env-key")
	pane := NewSettingsPaneModel(filepath.Join(t.TempDir(), "config.json"))
	assert.Empty(t, pane.apiKey)
	assert.Equal(t, config.DefaultBackend, pane.backendType)
	assert.Equal(t, fmt.Sprint(config.DefaultTimeoutSeconds), pane.timeoutSeconds)
}

func TestPositiveNumber(t *testing.T) {
	assert.NoError(t, positiveNumber("12"))
	assert.NoError(t, positiveNumber(" 7 "))
	assert.Error(t, positiveNumber("0"))
	assert.Error(t, positiveNumber("-3"))
	assert.Error(t, positiveNumber("ten"))
}

func newModel(t *testing.T, bus *events.EventBus) Model {
	t.Helper()
	m := New(Options{
		Bridge:       bridge.New(&echoBackend{}, bridge.WithEventBus(bus)),
		Bus:          bus,
		GlobalPath:   filepath.Join(t.TempDir(), "config.json"),
		InitialInput: "prefilled",
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestModel_InitialInput(t *testing.T) {
	m := newModel(t, nil)
	assert.Equal(t, "prefilled", m.chatPane.input.Value())
	assert.Equal(t, "cli", m.statusBar.backend)
	assert.NotEmpty(t, m.View())
}

func TestModel_SettingsToggle(t *testing.T) {
	m := newModel(t, nil)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	m = next.(Model)
	assert.True(t, m.showSettings)
	assert.True(t, m.settingsPane.IsVisible())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.False(t, m.showSettings)
	assert.False(t, m.quitting, "esc closes the form before quitting")
}

func TestModel_Quit(t *testing.T) {
	m := newModel(t, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "Goodbye!\n", next.(Model).View())
}

func TestModel_EventsReachStatusBar(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	m := newModel(t, bus)

	bus.Publish(events.TopicCall, events.CallCompletedEvent{ID: "x", Backend: "cli", Duration: time.Second})
	msg := m.Init()()
	next, cmd := m.Update(msg)
	assert.NotNil(t, cmd, "model keeps listening")
	assert.Equal(t, 1, next.(Model).statusBar.completed)
}

func TestModel_SettingsChanged(t *testing.T) {
	m := newModel(t, nil)

	s := config.DefaultSettings()
	s.Backend = backend.TypeHTTP
	s.ResponseLanguage = "Italian"
	next, _ := m.Update(SettingsChangedMsg{Settings: s})
	m = next.(Model)
	assert.Equal(t, "Respond in Italian.", m.chatPane.system)
	assert.Equal(t, backend.TypeHTTP, m.statusBar.backend)
}
