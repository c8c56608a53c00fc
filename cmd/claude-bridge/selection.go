package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kdrezo/claude-bridge/internal/assist"
)

// languageFor returns explicit when set, otherwise the language detected
// from fileName.
func languageFor(explicit, fileName string) string {
	if strings.TrimSpace(explicit) != "" {
		return strings.TrimSpace(explicit)
	}
	return assist.DetectLanguage(fileName)
}

// readSelection returns the content of path, or only the lines selected by
// spec ("a:b", "a:", ":b" or "n", 1-based and inclusive).
func readSelection(path, spec string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if spec == "" {
		return string(data), nil
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	from, to, err := parseLineRange(spec, len(lines))
	if err != nil {
		return "", err
	}
	return strings.Join(lines[from-1:to], "\n"), nil
}

// parseLineRange resolves spec against a file of total lines. The end is
// clamped to total; a start past the end is an error.
func parseLineRange(spec string, total int) (from, to int, err error) {
	start, end, isRange := strings.Cut(strings.TrimSpace(spec), ":")
	if !isRange {
		end = start
	}

	from, to = 1, total
	if start != "" {
		if from, err = strconv.Atoi(start); err != nil || from < 1 {
			return 0, 0, fmt.Errorf("invalid line range %q", spec)
		}
	}
	if end != "" {
		if to, err = strconv.Atoi(end); err != nil || to < 1 {
			return 0, 0, fmt.Errorf("invalid line range %q", spec)
		}
	}

	to = min(to, total)
	if from > to {
		return 0, 0, fmt.Errorf("line range %q is outside the file (%d lines)", spec, total)
	}
	return from, to, nil
}
