package config

import (
	"os"
	"strings"
	"time"

	"github.com/kdrezo/claude-bridge/internal/backend"
)

// Resolve turns preferences into a backend configuration. A blank CLI path
// is filled from DetectExecutable.
func Resolve(s *Settings) backend.Config {
	path := strings.TrimSpace(s.CLI.Path)
	if path == "" {
		home, _ := os.UserHomeDir()
		path = DetectExecutable(home)
	}

	return backend.Config{
		Type: s.Backend,
		HTTP: backend.HTTPConfig{
			Endpoint:  s.HTTP.Endpoint,
			APIKey:    s.HTTP.APIKey,
			Model:     s.HTTP.Model,
			MaxTokens: s.HTTP.MaxTokens,
			Version:   s.HTTP.Version,
		},
		Subprocess: backend.SubprocessConfig{
			Path:    path,
			Timeout: time.Duration(s.CLI.TimeoutSeconds) * time.Second,
			WorkDir: s.CLI.WorkDir,
		},
	}
}

// SystemPrompt appends the configured response language instruction to
// base. With no language set, base is returned unchanged.
func (s Settings) SystemPrompt(base string) string {
	lang := strings.TrimSpace(s.ResponseLanguage)
	if lang == "" {
		return base
	}
	suffix := "Respond in " + lang + "."
	if strings.TrimSpace(base) == "" {
		return suffix
	}
	return base + " " + suffix
}
