package config

// CLISettings configures the local claude CLI backend.
type CLISettings struct {
	Path           string `json:"path" mapstructure:"path"`                       // Empty means auto-detect
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"` // Wall-clock limit per call
	WorkDir        string `json:"work_dir,omitempty" mapstructure:"work_dir"`     // Working directory of the child
}

// HTTPSettings configures the hosted messages API backend.
type HTTPSettings struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	APIKey    string `json:"api_key,omitempty" mapstructure:"api_key"`
	Model     string `json:"model" mapstructure:"model"`
	MaxTokens int    `json:"max_tokens" mapstructure:"max_tokens"`
	Version   string `json:"version" mapstructure:"version"` // anthropic-version header
}

// Settings is the complete set of user preferences.
type Settings struct {
	Backend          string       `json:"backend" mapstructure:"backend"` // "cli" or "http"
	CLI              CLISettings  `json:"cli" mapstructure:"cli"`
	HTTP             HTTPSettings `json:"http" mapstructure:"http"`
	ResponseLanguage string       `json:"response_language,omitempty" mapstructure:"response_language"`
}

// Masked returns a copy safe to print: the API key is reduced to its last
// four characters.
func (s Settings) Masked() Settings {
	key := s.HTTP.APIKey
	switch {
	case key == "":
	case len(key) <= 8:
		s.HTTP.APIKey = "****"
	default:
		s.HTTP.APIKey = "****" + key[len(key)-4:]
	}
	return s
}
