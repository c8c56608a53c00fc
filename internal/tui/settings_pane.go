package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/kdrezo/claude-bridge/internal/config"
)

// SettingsSavedMsg is emitted after the settings form wrote the global file.
type SettingsSavedMsg struct {
	Settings *config.Settings
	Path     string
}

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form       *huh.Form
	globalPath string
	width      int
	height     int
	visible    bool
	err        error

	// Form field bindings (strings for Huh)
	backendType      string
	cliPath          string
	timeoutSeconds   string
	apiKey           string
	model            string
	maxTokens        string
	responseLanguage string
}

// NewSettingsPaneModel creates a settings pane editing the file at
// globalPath.
func NewSettingsPaneModel(globalPath string) SettingsPaneModel {
	m := SettingsPaneModel{globalPath: globalPath}
	m.load()
	m.buildForm()
	return m
}

// load fills the form bindings from the global file only, so values coming
// from the environment or a project file are never written back.
func (m *SettingsPaneModel) load() {
	s, err := config.LoadFile(m.globalPath)
	if err != nil {
		m.err = err
		s = config.DefaultSettings()
	}

	m.backendType = s.Backend
	m.cliPath = s.CLI.Path
	m.timeoutSeconds = strconv.Itoa(s.CLI.TimeoutSeconds)
	m.apiKey = s.HTTP.APIKey
	m.model = s.HTTP.Model
	m.maxTokens = strconv.Itoa(s.HTTP.MaxTokens)
	m.responseLanguage = s.ResponseLanguage
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("backend").
				Title("Backend").
				Options(
					huh.NewOption("Claude CLI (subscription)", backend.TypeCLI),
					huh.NewOption("Anthropic HTTP API", backend.TypeHTTP),
				).
				Value(&m.backendType),

			huh.NewInput().
				Key("responseLanguage").
				Title("Response Language").
				Description("Leave empty to let Claude choose").
				Value(&m.responseLanguage).
				Placeholder("English"),
		).Title("General"),

		huh.NewGroup(
			huh.NewInput().
				Key("cliPath").
				Title("Claude Executable").
				Description("Leave empty to detect it").
				Value(&m.cliPath).
				Placeholder(config.FallbackExecutable),

			huh.NewInput().
				Key("timeoutSeconds").
				Title("Timeout (seconds)").
				Value(&m.timeoutSeconds).
				Validate(positiveNumber),
		).Title("Claude CLI"),

		huh.NewGroup(
			huh.NewInput().
				Key("apiKey").
				Title("API Key").
				EchoMode(huh.EchoModePassword).
				Value(&m.apiKey).
				Placeholder("sk-ant-..."),

			huh.NewInput().
				Key("model").
				Title("Model").
				Value(&m.model).
				Placeholder(config.DefaultModel),

			huh.NewInput().
				Key("maxTokens").
				Title("Max Tokens").
				Value(&m.maxTokens).
				Validate(positiveNumber),
		).Title("HTTP API"),
	)
	if m.width > 0 && m.height > 0 {
		m.form = m.form.WithWidth(m.width - 8).WithHeight(m.height - 8)
	}
}

func positiveNumber(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit:
			// Cancel without saving
			m.visible = false
			return m, nil
		}
	}

	// Delegate to form
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.visible = false
	case huh.StateCompleted:
		s, err := m.apply()
		if err != nil {
			m.err = err
			m.buildForm()
			return m, m.form.Init()
		}
		m.err = nil
		m.visible = false
		saved := SettingsSavedMsg{Settings: s, Path: m.globalPath}
		return m, func() tea.Msg { return saved }
	}

	return m, cmd
}

// apply writes the form values over the global file and saves it.
func (m *SettingsPaneModel) apply() (*config.Settings, error) {
	s, err := config.LoadFile(m.globalPath)
	if err != nil {
		return nil, err
	}

	fields := []struct{ key, value string }{
		{"backend", m.backendType},
		{"cli.path", m.cliPath},
		{"cli.timeout_seconds", m.timeoutSeconds},
		{"http.api_key", m.apiKey},
		{"http.model", m.model},
		{"http.max_tokens", m.maxTokens},
		{"response_language", m.responseLanguage},
	}
	for _, f := range fields {
		if err := config.Set(s, f.key, f.value); err != nil {
			return nil, err
		}
	}

	if err := config.Save(s, m.globalPath); err != nil {
		return nil, err
	}
	return s, nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	content := m.form.View()
	if m.err != nil {
		errLine := lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ %v", m.err))
		content = lipgloss.JoinVertical(lipgloss.Left, errLine, "", content)
	}

	// Wrap in styled border
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(max(m.width-4, 20)).
		Height(max(m.height-4, 10))

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings (" + m.globalPath + ")")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form = m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane. Showing it reloads the
// global file into a fresh form.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.err = nil
	if v {
		m.load()
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
