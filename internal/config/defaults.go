package config

import (
	"github.com/kdrezo/claude-bridge/internal/backend"
)

// Default preference values.
const (
	DefaultBackend        = backend.TypeCLI
	DefaultTimeoutSeconds = 120
	DefaultModel          = "claude-sonnet-4-5"
	DefaultMaxTokens      = 4096
)

// DefaultSettings returns the preferences used when nothing is configured.
// The CLI path is left empty so it is detected at resolve time.
func DefaultSettings() *Settings {
	return &Settings{
		Backend: DefaultBackend,
		CLI: CLISettings{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		HTTP: HTTPSettings{
			Endpoint:  backend.DefaultEndpoint,
			Model:     DefaultModel,
			MaxTokens: DefaultMaxTokens,
			Version:   backend.DefaultAPIVersion,
		},
	}
}

// defaultValues flattens DefaultSettings into viper keys. Every key must be
// registered so environment overrides reach Unmarshal.
func defaultValues() map[string]any {
	d := DefaultSettings()
	return map[string]any{
		"backend":             d.Backend,
		"cli.path":            d.CLI.Path,
		"cli.timeout_seconds": d.CLI.TimeoutSeconds,
		"cli.work_dir":        d.CLI.WorkDir,
		"http.endpoint":       d.HTTP.Endpoint,
		"http.api_key":        d.HTTP.APIKey,
		"http.model":          d.HTTP.Model,
		"http.max_tokens":     d.HTTP.MaxTokens,
		"http.version":        d.HTTP.Version,
		"response_language":   d.ResponseLanguage,
	}
}
