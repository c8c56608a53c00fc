package backend

import "time"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Backend type identifiers accepted by New.
const (
	TypeHTTP = "http"
	TypeCLI  = "cli"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage returns a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request is a single round trip. The last message is the new user turn;
// anything before it is prior conversation.
type Request struct {
	System   string
	Messages []Message
}

// Prompt returns the content of the final message, or "" for an empty request.
func (r Request) Prompt() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// HTTPConfig configures the hosted messages API backend.
type HTTPConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	MaxTokens      int
	Version        string        // anthropic-version header
	ConnectTimeout time.Duration // dial + TLS handshake
	ReadTimeout    time.Duration // whole exchange once connected
}

// SubprocessConfig configures the local CLI backend.
type SubprocessConfig struct {
	Path    string
	Timeout time.Duration
	WorkDir string
}

// Config selects and configures one backend variant.
type Config struct {
	Type       string // TypeHTTP or TypeCLI
	HTTP       HTTPConfig
	Subprocess SubprocessConfig
}
