package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by Set for a key it does not know.
var ErrUnknownKey = errors.New("unknown setting")

type setter func(s *Settings, value string) error

var setters = map[string]setter{
	"backend": func(s *Settings, v string) error {
		s.Backend = strings.ToLower(strings.TrimSpace(v))
		return nil
	},
	"cli.path":            func(s *Settings, v string) error { s.CLI.Path = strings.TrimSpace(v); return nil },
	"cli.timeout_seconds": func(s *Settings, v string) error { return setPositive(&s.CLI.TimeoutSeconds, v) },
	"cli.work_dir":        func(s *Settings, v string) error { s.CLI.WorkDir = strings.TrimSpace(v); return nil },
	"http.endpoint":       func(s *Settings, v string) error { s.HTTP.Endpoint = strings.TrimSpace(v); return nil },
	"http.api_key":        func(s *Settings, v string) error { s.HTTP.APIKey = strings.TrimSpace(v); return nil },
	"http.model":          func(s *Settings, v string) error { s.HTTP.Model = strings.TrimSpace(v); return nil },
	"http.max_tokens":     func(s *Settings, v string) error { return setPositive(&s.HTTP.MaxTokens, v) },
	"http.version":        func(s *Settings, v string) error { s.HTTP.Version = strings.TrimSpace(v); return nil },
	"response_language":   func(s *Settings, v string) error { s.ResponseLanguage = strings.TrimSpace(v); return nil },
}

// Keys lists the dotted keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to the dotted key (e.g. "http.max_tokens") and
// validates the result. s is left untouched on error.
func Set(s *Settings, key, value string) error {
	fn, ok := setters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}

	next := *s
	if err := fn(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := Validate(&next); err != nil {
		return err
	}
	*s = next
	return nil
}

func setPositive(dst *int, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("not a number: %q", value)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	*dst = n
	return nil
}
