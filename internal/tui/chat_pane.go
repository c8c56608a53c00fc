package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/bridge"
)

const inputHeight = 4

// entry is one block of the transcript.
type entry struct {
	role   string
	text   string
	failed bool
}

// replyMsg is a finished call. epoch is the clear counter at the time the
// call was sent.
type replyMsg struct {
	reply string
	err   error
	epoch int
}

// uiCall is a completion handed to the event loop by the pane's dispatcher.
// Update runs it, so completions only ever touch the pane from there.
type uiCall func()

// inbox holds replies produced by uiCalls until Update folds them in. It is
// shared by every copy of the pane.
type inbox struct {
	replies []replyMsg
}

func (in *inbox) take() []replyMsg {
	out := in.replies
	in.replies = nil
	return out
}

// ChatPaneModel is the conversation view: transcript on top, input below.
type ChatPaneModel struct {
	ctx        context.Context
	bridge     *bridge.Bridge
	system     string
	viewport   viewport.Model
	input      textarea.Model
	spinner    spinner.Model
	queue      chan uiCall
	inbox      *inbox
	transcript []entry
	inFlight   int
	epoch      int
	width      int
	height     int
	focused    bool
}

// NewChatPaneModel creates a chat pane sending through b. system is passed
// with every message and may be empty.
func NewChatPaneModel(ctx context.Context, b *bridge.Bridge, system string) ChatPaneModel {
	ta := textarea.New()
	ta.Placeholder = "Ask Claude... (ctrl+s to send)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetHeight(inputHeight)
	ta.Focus()

	m := ChatPaneModel{
		ctx:      ctx,
		bridge:   b,
		system:   system,
		viewport: viewport.New(80, 20),
		input:    ta,
		queue:    make(chan uiCall, 16),
		inbox:    &inbox{},
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleStatusRunning)),
		focused:  true,
	}
	m.refresh()
	return m
}

// dispatch is the bridge.Dispatcher of the pane: it queues fn for the event
// loop.
func (m ChatPaneModel) dispatch(fn func()) {
	select {
	case m.queue <- uiCall(fn):
	case <-m.ctx.Done():
	}
}

// waitForDispatch returns a command that delivers the next queued completion.
func waitForDispatch(ctx context.Context, queue <-chan uiCall) tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-queue:
			return fn
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages for the chat pane.
func (m ChatPaneModel) Update(msg tea.Msg) (ChatPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeySend:
			return m.submit()
		case KeyClear:
			m.clear()
			return m, nil
		case KeyPgUp, KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case uiCall:
		msg()
		for _, r := range m.inbox.take() {
			m.receive(r)
		}

	case spinner.TickMsg:
		if m.inFlight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *ChatPaneModel) receive(r replyMsg) {
	if m.inFlight > 0 {
		m.inFlight--
	}
	// Replies to calls sent before a clear are dropped.
	if r.epoch != m.epoch {
		return
	}
	if r.err != nil {
		m.transcript = append(m.transcript, entry{text: errorText(r.err), failed: true})
	} else {
		m.transcript = append(m.transcript, entry{role: backend.RoleAssistant, text: r.reply})
	}
	m.refresh()
}

// submit sends the input as a new user turn. Several calls may be in
// flight at once; replies are shown in completion order.
func (m ChatPaneModel) submit() (ChatPaneModel, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.transcript = append(m.transcript, entry{role: backend.RoleUser, text: text})
	m.refresh()

	epoch, in := m.epoch, m.inbox
	m.bridge.SendMessageAsync(m.ctx, text, m.system).Then(m.dispatch, func(reply string, err error) {
		in.replies = append(in.replies, replyMsg{reply: reply, err: err, epoch: epoch})
	})
	m.inFlight++
	wait := waitForDispatch(m.ctx, m.queue)
	if m.inFlight == 1 {
		return m, tea.Batch(wait, m.spinner.Tick)
	}
	return m, wait
}

// clear empties the transcript and the bridge history.
func (m *ChatPaneModel) clear() {
	m.bridge.ClearHistory()
	m.transcript = nil
	m.epoch++
	m.refresh()
}

func errorText(err error) string {
	if errors.Is(err, backend.ErrNotConfigured) {
		return err.Error() + " (ctrl+o opens settings)"
	}
	return err.Error()
}

// View renders the chat pane.
func (m ChatPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	status := ""
	if m.inFlight > 0 {
		label := "waiting for Claude..."
		if m.inFlight > 1 {
			label = fmt.Sprintf("waiting for %d replies...", m.inFlight)
		}
		status = m.spinner.View() + " " + StyleStatusRunning.Render(label)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), status, m.input.View())

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// refresh re-renders the transcript into the viewport.
func (m *ChatPaneModel) refresh() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent(StyleStatusPending.Render("Start the conversation below."))
		return
	}

	wrap := lipgloss.NewStyle().Width(max(m.viewport.Width-1, 10))
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case e.failed:
			b.WriteString(StyleErrorText.Render(wrap.Render("Error: " + e.text)))
		case e.role == backend.RoleUser:
			b.WriteString(StyleUserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
		default:
			b.WriteString(StyleAssistantLabel.Render("Claude"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
		}
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// SetSize updates the pane dimensions.
func (m *ChatPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	innerWidth := max(w-4, 10)
	m.input.SetWidth(innerWidth)
	m.viewport.Width = innerWidth
	// Border, status line and input.
	m.viewport.Height = max(h-2-1-inputHeight, 3)
	m.refresh()
}

// SetFocused updates the focus state.
func (m *ChatPaneModel) SetFocused(focused bool) {
	m.focused = focused
	if focused {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// SetInput replaces the text of the input box.
func (m *ChatPaneModel) SetInput(text string) {
	m.input.SetValue(text)
}

// SetSystem changes the system prompt used for the next messages.
func (m *ChatPaneModel) SetSystem(system string) {
	m.system = system
}

// InFlight reports how many calls are waiting for a reply.
func (m ChatPaneModel) InFlight() int {
	return m.inFlight
}
