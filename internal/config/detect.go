package config

import (
	"os/exec"
	"path/filepath"

	"github.com/kdrezo/claude-bridge/internal/backend"
)

// FallbackExecutable is returned by DetectExecutable when nothing is found.
const FallbackExecutable = "/usr/local/bin/claude"

// CandidatePaths lists where the claude CLI is usually installed, in probe order.
func CandidatePaths(home string) []string {
	paths := []string{
		"/usr/local/bin/claude",
		"/opt/homebrew/bin/claude",
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".npm-global", "bin", "claude"),
			filepath.Join(home, "node_modules", ".bin", "claude"),
		)
	}
	paths = append(paths, "/usr/bin/claude")
	if home != "" {
		paths = append(paths, filepath.Join(home, ".local", "bin", "claude"))
	}
	return paths
}

// DetectExecutable returns the first executable claude found in the
// candidate paths or on PATH, or FallbackExecutable. It never fails.
func DetectExecutable(home string) string {
	return probe(CandidatePaths(home), exec.LookPath)
}

func probe(candidates []string, lookPath func(string) (string, error)) string {
	for _, path := range candidates {
		if backend.IsExecutable(path) {
			return path
		}
	}
	if lookPath != nil {
		if path, err := lookPath("claude"); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return FallbackExecutable
}
