package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTP backend defaults.
const (
	DefaultEndpoint       = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion     = "2023-06-01"
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 120 * time.Second

	maxErrorBody = 1 << 20
)

// errBodyTimeout cancels a request whose body is not read within ReadTimeout.
var errBodyTimeout = errors.New("response body read timed out")

// messagesRequest is the JSON body posted to the messages endpoint.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// messagesResponse holds the part of a 200 answer we read.
// Example: {"content": [{"type": "text", "text": "Hello"}, {"type": "tool_use", ...}]}
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// HTTPBackend posts each call to a hosted messages API.
// Every call opens its own connection; keep-alives are disabled. Connecting
// is bounded by ConnectTimeout; the headers and then the body each get
// ReadTimeout.
type HTTPBackend struct {
	cfg       HTTPConfig
	transport *http.Transport
	client    *http.Client
	log       zerolog.Logger
}

// NewHTTPBackend creates an HTTP backend, filling zero fields with defaults.
func NewHTTPBackend(cfg HTTPConfig, log zerolog.Logger) *HTTPBackend {
	if cfg.Version == "" {
		cfg.Version = DefaultAPIVersion
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		DisableKeepAlives:     true,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPBackend{
		cfg:       cfg,
		transport: transport,
		client:    &http.Client{Transport: transport},
		log: log.With().Str("backend", TypeHTTP).Logger(),
	}
}

func (b *HTTPBackend) Name() string { return TypeHTTP }

// Ready checks that endpoint, key, model and token budget are set.
func (b *HTTPBackend) Ready() error {
	switch {
	case strings.TrimSpace(b.cfg.APIKey) == "":
		return fmt.Errorf("%w: API key is empty", ErrNotConfigured)
	case strings.TrimSpace(b.cfg.Model) == "":
		return fmt.Errorf("%w: model is empty", ErrNotConfigured)
	case b.cfg.MaxTokens <= 0:
		return fmt.Errorf("%w: max tokens must be positive", ErrNotConfigured)
	}

	u, err := url.Parse(strings.TrimSpace(b.cfg.Endpoint))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: invalid endpoint %q", ErrNotConfigured, b.cfg.Endpoint)
	}
	return nil
}

// Close drops any idle connection.
func (b *HTTPBackend) Close() error {
	b.transport.CloseIdleConnections()
	return nil
}

// Send posts req and returns the concatenated text blocks of the answer.
func (b *HTTPBackend) Send(ctx context.Context, req Request) (string, error) {
	if err := b.Ready(); err != nil {
		return "", err
	}

	payload, err := encodeRequest(b.cfg, req)
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, strings.TrimSpace(b.cfg.Endpoint), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", b.cfg.Version)

	start := time.Now()
	b.log.Debug().Str("model", b.cfg.Model).Int("messages", len(req.Messages)).Msg("posting messages request")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", transportError(ctx, err)
	}
	defer resp.Body.Close()

	bodyTimer := time.AfterFunc(b.cfg.ReadTimeout, func() { cancel(errBodyTimeout) })
	defer bodyTimer.Stop()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		b.log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("messages request rejected")
		return "", &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(context.Cause(reqCtx), errBodyTimeout) {
			return "", fmt.Errorf("%w: %v after %s", ErrTimeout, errBodyTimeout, b.cfg.ReadTimeout)
		}
		return "", transportError(ctx, fmt.Errorf("reading response: %w", err))
	}

	b.log.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Dur("elapsed", time.Since(start)).Msg("messages response")
	return extractText(body)
}

// encodeRequest builds the JSON payload. encoding/json escapes every control
// character, quote and backslash, so arbitrary prompt text round-trips.
func encodeRequest(cfg HTTPConfig, req Request) ([]byte, error) {
	messages := req.Messages
	if messages == nil {
		messages = []Message{}
	}
	body := messagesRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Messages:  messages,
	}
	if strings.TrimSpace(req.System) != "" {
		body.System = req.System
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return data, nil
}

// extractText concatenates the text of every "text" block in document order.
func extractText(body []byte) (string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var sb strings.Builder
	found := false
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		found = true
		sb.WriteString(block.Text)
	}

	if !found {
		return "", fmt.Errorf("%w: no text content", ErrMalformedResponse)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// transportError maps client failures onto the error taxonomy.
func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("request failed: %w", err)
}
