package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kdrezo/claude-bridge/internal/events"
)

// StatusBarModel summarizes call activity from the event bus.
type StatusBarModel struct {
	backend   string
	running   int
	completed int
	failed    int
	last      time.Duration
	lastError string
	notice    string
	width     int
}

// NewStatusBarModel creates a status bar for the named backend.
func NewStatusBarModel(backendName string) StatusBarModel {
	return StatusBarModel{backend: backendName}
}

// Update handles messages for the status bar.
func (m StatusBarModel) Update(msg tea.Msg) (StatusBarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case events.CallStartedEvent:
		m.running++
		if msg.Backend != "" {
			m.backend = msg.Backend
		}

	case events.CallCompletedEvent:
		m.running = max(m.running-1, 0)
		m.completed++
		m.last = msg.Duration
		m.lastError = ""

	case events.CallFailedEvent:
		m.running = max(m.running-1, 0)
		m.failed++
		m.last = msg.Duration
		m.lastError = msg.Kind

	case events.HistoryClearedEvent:
		m.notice = fmt.Sprintf("cleared %d messages", msg.Dropped)
	}

	return m, nil
}

// View renders the status bar.
func (m StatusBarModel) View() string {
	backendName := m.backend
	if backendName == "" {
		backendName = "none"
	}

	parts := []string{
		StyleTitle.Render("backend: " + backendName),
		fmt.Sprintf("running: %s", StyleStatusRunning.Render(fmt.Sprintf("%d", m.running))),
		fmt.Sprintf("ok: %s", StyleStatusComplete.Render(fmt.Sprintf("%d", m.completed))),
		fmt.Sprintf("failed: %s", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))),
	}
	if m.last > 0 {
		parts = append(parts, "last: "+m.last.Round(100*time.Millisecond).String())
	}
	if m.lastError != "" {
		parts = append(parts, StyleStatusFailed.Render(m.lastError))
	}
	if m.notice != "" {
		parts = append(parts, StyleStatusPending.Render(m.notice))
	}

	return strings.Join(parts, " | ")
}

// SetBackend changes the backend name shown.
func (m *StatusBarModel) SetBackend(name string) {
	m.backend = name
}

// SetNotice shows a short message until the next one.
func (m *StatusBarModel) SetNotice(notice string) {
	m.notice = notice
}

// SetSize updates the bar width.
func (m *StatusBarModel) SetSize(w int) {
	m.width = w
}
