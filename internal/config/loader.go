package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kdrezo/claude-bridge/internal/backend"
	"github.com/spf13/viper"
)

// Environment variables read by Load.
const (
	EnvPrefix    = "CLAUDE_BRIDGE"     // CLAUDE_BRIDGE_HTTP_API_KEY, CLAUDE_BRIDGE_CLI_PATH, ...
	EnvAPIKeyAlt = "ANTHROPIC_API_KEY" // fallback for http.api_key
)

// Load reads and merges preferences from global and project paths, then
// applies environment overrides.
// Order of precedence (highest to lowest): environment, project file, global file, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Settings, error) {
	v := newViper(true)

	if err := mergeConfigFile(v, globalPath); err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}
	if s.HTTP.APIKey == "" {
		s.HTTP.APIKey = os.Getenv(EnvAPIKeyAlt)
	}
	return s, nil
}

// LoadFile reads a single preference file over the defaults, ignoring the
// environment. Use it when the result is going to be saved back.
func LoadFile(path string) (*Settings, error) {
	v := newViper(false)
	if err := mergeConfigFile(v, path); err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadDefault loads preferences from conventional paths.
// Global: ~/.claude-bridge/config.json
// Project: .claude-bridge/config.json (relative to cwd)
func LoadDefault() (*Settings, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath())
}

// GlobalPath returns ~/.claude-bridge/config.json.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ProjectPath returns .claude-bridge/config.json relative to the working directory.
func ProjectPath() string {
	return filepath.Join(".claude-bridge", "config.json")
}

// Dir returns the per-user state directory ~/.claude-bridge.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude-bridge"), nil
}

// Validate checks values that would make every call fail in a confusing way.
func Validate(s *Settings) error {
	switch s.Backend {
	case backend.TypeCLI, backend.TypeHTTP:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", backend.TypeCLI, backend.TypeHTTP, s.Backend)
	}
	if s.CLI.TimeoutSeconds <= 0 {
		return fmt.Errorf("cli.timeout_seconds must be positive, got %d", s.CLI.TimeoutSeconds)
	}
	if s.HTTP.MaxTokens <= 0 {
		return fmt.Errorf("http.max_tokens must be positive, got %d", s.HTTP.MaxTokens)
	}
	return nil
}

// newViper returns a private viper instance seeded with the defaults.
func newViper(withEnv bool) *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}
	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return v
}

// mergeConfigFile merges a JSON file into v.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
