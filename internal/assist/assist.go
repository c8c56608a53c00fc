// Package assist turns editor actions (explain a selection, generate code,
// send a selection to the chat) into prompts for the bridge.
package assist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoInput is returned when there is no code or description to work on.
var ErrNoInput = errors.New("nothing to send: input is empty")

const (
	expertPrompt   = "You are an expert programming assistant."
	generatePrompt = "You are an expert programming assistant. Generate clean, well-commented code."

	explainInstruction = "Explain this code clearly and concisely. Describe what it does, how it works, and mention any potential problems."
)

// Asker sends a single message outside of any conversation.
// *bridge.Bridge satisfies it.
type Asker interface {
	SendMessageWithoutHistory(ctx context.Context, text, system string) (string, error)
}

// PromptBuilder completes a base system prompt, for instance with a
// response language. config.Settings.SystemPrompt is one.
type PromptBuilder func(base string) string

// Assistant runs the editor actions against an Asker.
type Assistant struct {
	asker  Asker
	system PromptBuilder
}

// New creates an Assistant. A nil system sends the base prompts unchanged.
func New(asker Asker, system PromptBuilder) *Assistant {
	if system == nil {
		system = func(base string) string { return base }
	}
	return &Assistant{asker: asker, system: system}
}

// ExplainCode asks for an explanation of code written in language.
func (a *Assistant) ExplainCode(ctx context.Context, code, language string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", ErrNoInput
	}
	return a.asker.SendMessageWithoutHistory(ctx, ExplainPrompt(code, language), a.system(expertPrompt))
}

// GenerateCode asks for language code matching description and returns
// it without markdown fences.
func (a *Assistant) GenerateCode(ctx context.Context, description, language string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", ErrNoInput
	}
	reply, err := a.asker.SendMessageWithoutHistory(ctx, GeneratePrompt(description, language), a.system(generatePrompt))
	if err != nil {
		return "", err
	}
	return CleanGeneratedCode(reply), nil
}

// ExplainPrompt is the user message sent by ExplainCode.
func ExplainPrompt(code, language string) string {
	return fmt.Sprintf("Here is some %s code to analyse:\n\n```%s\n%s\n```\n\n%s",
		language, FenceTag(language), code, explainInstruction)
}

// GeneratePrompt is the user message sent by GenerateCode.
func GeneratePrompt(description, language string) string {
	return fmt.Sprintf("Generate %s code for: %s\n\nReturn only the code, without any additional explanation.",
		language, strings.TrimSpace(description))
}

// AnalysisMessage is the chat input pre-filled when a selection is sent to
// the chat panel.
func AnalysisMessage(code, language, fileName string) string {
	return fmt.Sprintf("Analyse this %s code (file: %s):\n\n```%s\n%s\n```",
		language, fileName, FenceTag(language), code)
}

var (
	leadingFence  = regexp.MustCompile("^```[^\\n`]*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
)

// CleanGeneratedCode strips an opening fence (with or without an info
// string) and a closing fence from a reply, then trims it.
func CleanGeneratedCode(code string) string {
	code = strings.TrimSpace(code)
	code = leadingFence.ReplaceAllString(code, "")
	code = trailingFence.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}
