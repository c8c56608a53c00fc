package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPConfig(endpoint string) HTTPConfig {
	return HTTPConfig{
		Endpoint:  endpoint,
		APIKey:    "sk-test",
		Model:     "claude-test",
		MaxTokens: 256,
	}
}

func TestHTTPBackend_RequestShape(t *testing.T) {
	var got messagesRequest
	var headers http.Header
	var method string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer server.Close()

	b := NewHTTPBackend(testHTTPConfig(server.URL+"/v1/messages"), zerolog.Nop())
	defer b.Close()

	reply, err := b.Send(context.Background(), Request{
		System: "Be brief.",
		Messages: []Message{
			UserMessage("first"),
			AssistantMessage("second"),
			UserMessage("third"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "sk-test", headers.Get("x-api-key"))
	assert.Equal(t, DefaultAPIVersion, headers.Get("anthropic-version"))

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	assert.Equal(t, "Be brief.", got.System)
	assert.Equal(t, []Message{
		UserMessage("first"),
		AssistantMessage("second"),
		UserMessage("third"),
	}, got.Messages)
}

func TestHTTPBackend_OmitsBlankSystem(t *testing.T) {
	var raw map[string]json.RawMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer server.Close()

	b := NewHTTPBackend(testHTTPConfig(server.URL), zerolog.Nop())
	defer b.Close()

	_, err := b.Send(context.Background(), Request{System: "   ", Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	assert.NotContains(t, raw, "system")
}

func TestHTTPBackend_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit_error"}}`+"\n")
	}))
	defer server.Close()

	b := NewHTTPBackend(testHTTPConfig(server.URL), zerolog.Nop())
	defer b.Close()

	_, err := b.Send(context.Background(), Request{Messages: []Message{UserMessage("hi")}})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Equal(t, `{"error":{"type":"rate_limit_error"}}`, httpErr.Body)
	assert.Equal(t, KindHTTPError, KindOf(err))
}

func TestHTTPBackend_NoRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	b := NewHTTPBackend(testHTTPConfig(server.URL), zerolog.Nop())
	defer b.Close()

	_, err := b.Send(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPBackend_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testHTTPConfig(server.URL)
	cfg.ConnectTimeout = time.Second
	cfg.ReadTimeout = 200 * time.Millisecond

	b := NewHTTPBackend(cfg, zerolog.Nop())
	defer b.Close()

	start := time.Now()
	_, err := b.Send(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

// Headers arrive in time but the body stalls.
func TestHTTPBackend_BodyReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"content": [`)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testHTTPConfig(server.URL)
	cfg.ConnectTimeout = time.Second
	cfg.ReadTimeout = 200 * time.Millisecond

	b := NewHTTPBackend(cfg, zerolog.Nop())
	defer b.Close()

	start := time.Now()
	_, err := b.Send(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPBackend_Canceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	b := NewHTTPBackend(testHTTPConfig(server.URL), zerolog.Nop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := b.Send(ctx, Request{Messages: []Message{UserMessage("hi")}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestHTTPBackend_Ready(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HTTPConfig)
		ok     bool
	}{
		{name: "complete", mutate: func(*HTTPConfig) {}, ok: true},
		{name: "plain http", mutate: func(c *HTTPConfig) { c.Endpoint = "http://localhost:8080/v1/messages" }, ok: true},
		{name: "no key", mutate: func(c *HTTPConfig) { c.APIKey = "" }},
		{name: "blank key", mutate: func(c *HTTPConfig) { c.APIKey = "  " }},
		{name: "no model", mutate: func(c *HTTPConfig) { c.Model = "" }},
		{name: "zero tokens", mutate: func(c *HTTPConfig) { c.MaxTokens = 0 }},
		{name: "bad scheme", mutate: func(c *HTTPConfig) { c.Endpoint = "ftp://example.com" }},
		{name: "no host", mutate: func(c *HTTPConfig) { c.Endpoint = "https://" }},
		{name: "empty endpoint", mutate: func(c *HTTPConfig) { c.Endpoint = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testHTTPConfig(DefaultEndpoint)
			tt.mutate(&cfg)
			err := NewHTTPBackend(cfg, zerolog.Nop()).Ready()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestHTTPBackend_NotReadyDoesNoIO(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := testHTTPConfig(server.URL)
	cfg.APIKey = ""
	b := NewHTTPBackend(cfg, zerolog.Nop())

	_, err := b.Send(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, hits.Load())
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "escaped newline decoded",
			body: `{"content":[{"type":"text","text":"a\nb"}]}`,
			want: "a\nb",
		},
		{
			name: "escaped quotes and unicode",
			body: `{"content":[{"type":"text","text":"say \"hi\" é\\"}]}`,
			want: "say \"hi\" é\\",
		},
		{
			name: "text blocks concatenated, others skipped",
			body: `{"id":"msg_1","content":[{"type":"text","text":"one "},{"type":"tool_use","id":"t","name":"x","input":{}},{"type":"text","text":"two"}],"stop_reason":"end_turn"}`,
			want: "one two",
		},
		{
			name:    "no text block",
			body:    `{"content":[{"type":"tool_use","id":"t"}]}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "no content at all",
			body:    `{"type":"message"}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "not json",
			body:    `<html>bad gateway</html>`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "whitespace only",
			body:    `{"content":[{"type":"text","text":" \n "}]}`,
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Arbitrary prompt text must survive encoding exactly.
func TestEncodeRequest_PreservesContent(t *testing.T) {
	inputs := []string{
		"plain",
		"line1\nline2\r\n\ttabbed",
		`quotes " and backslashes \ \\`,
		"control \x00\x01\x1f chars",
		"unicode: é 日本語 🎉",
		"</script><b>html</b>",
	}

	for _, in := range inputs {
		data, err := encodeRequest(testHTTPConfig(DefaultEndpoint), Request{
			System:   in,
			Messages: []Message{UserMessage(in)},
		})
		require.NoError(t, err)

		var decoded messagesRequest
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, in, decoded.System)
		require.Len(t, decoded.Messages, 1)
		assert.Equal(t, in, decoded.Messages[0].Content)
	}
}

func TestEncodeRequest_EmptyMessagesIsArray(t *testing.T) {
	data, err := encodeRequest(testHTTPConfig(DefaultEndpoint), Request{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"messages":[]`)
}
