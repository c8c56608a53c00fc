// Package tui is the terminal chat panel: a transcript with an input box,
// a status line fed by the event bus, and a settings form.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kdrezo/claude-bridge/internal/bridge"
	"github.com/kdrezo/claude-bridge/internal/config"
	"github.com/kdrezo/claude-bridge/internal/events"
)

// SettingsChangedMsg tells the panel that preferences were reloaded and the
// bridge may have a new backend. Hosts send it with Program.Send.
type SettingsChangedMsg struct {
	Settings *config.Settings
}

// Options configures New. Bridge is required.
type Options struct {
	Context    context.Context
	Bridge     *bridge.Bridge
	Bus        *events.EventBus
	Settings   *config.Settings
	GlobalPath string

	// InitialInput pre-fills the input box.
	InitialInput string
}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	chatPane     ChatPaneModel
	statusBar    StatusBarModel
	settingsPane SettingsPaneModel
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
	showSettings bool
}

// New creates a new TUI model.
// It subscribes to all events from the event bus using SubscribeAll.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	settings := opts.Settings
	if settings == nil {
		settings = config.DefaultSettings()
	}

	m := Model{
		chatPane:     NewChatPaneModel(ctx, opts.Bridge, settings.SystemPrompt("")),
		statusBar:    NewStatusBarModel(backendName(opts.Bridge)),
		settingsPane: NewSettingsPaneModel(opts.GlobalPath),
	}
	if opts.Bus != nil {
		m.eventSub = opts.Bus.SubscribeAll(256)
	}
	if opts.InitialInput != "" {
		m.chatPane.SetInput(opts.InitialInput)
	}
	return m
}

func backendName(b *bridge.Bridge) string {
	if b == nil || b.Backend() == nil {
		return ""
	}
	return b.Backend().Name()
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior)
		if m.showSettings {
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)

			// Check if settings pane closed itself (after save or esc)
			if !m.settingsPane.IsVisible() {
				m.showSettings = false
				m.chatPane.SetFocused(true)
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.chatPane.SetFocused(false)
			m.settingsPane.SetVisible(true)
			m.settingsPane.SetSize(m.width, m.height)
			cmds = append(cmds, m.settingsPane.Init())

		default:
			var cmd tea.Cmd
			m.chatPane, cmd = m.chatPane.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case events.CallStartedEvent, events.CallCompletedEvent, events.CallFailedEvent, events.HistoryClearedEvent:
		var cmd tea.Cmd
		m.statusBar, cmd = m.statusBar.Update(msg)
		cmds = append(cmds, cmd)
		// Also wait for next event
		cmds = append(cmds, waitForEvent(m.eventSub))

	case SettingsSavedMsg:
		m.statusBar.SetNotice("settings saved to " + msg.Path)

	case SettingsChangedMsg:
		if msg.Settings != nil {
			m.chatPane.SetSystem(msg.Settings.SystemPrompt(""))
			m.statusBar.SetBackend(msg.Settings.Backend)
		}
		m.statusBar.SetNotice("settings reloaded")

	default:
		// Replies, spinner ticks and form internals.
		if m.showSettings {
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)
			if !m.settingsPane.IsVisible() {
				m.showSettings = false
				m.chatPane.SetFocused(true)
			}
		}
		var cmd tea.Cmd
		m.chatPane, cmd = m.chatPane.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.chatPane.View(), m.statusBar.View(), HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	// Status bar and help bar take one line each.
	m.chatPane.SetSize(m.width, max(m.height-2, 5))
	m.statusBar.SetSize(m.width)
}
