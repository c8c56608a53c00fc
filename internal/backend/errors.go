package backend

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the backend is missing settings or its executable.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrTimeout means the call exceeded its deadline and was abandoned.
	ErrTimeout = errors.New("backend timed out")

	// ErrNotAuthenticated means the CLI reported that no user is logged in.
	ErrNotAuthenticated = errors.New("not authenticated: run 'claude' in a terminal to log in")

	// ErrEmptyResponse means the backend succeeded but returned no text.
	ErrEmptyResponse = errors.New("backend returned an empty response")

	// ErrMalformedResponse means a 200 response carried no usable text content.
	ErrMalformedResponse = errors.New("malformed response")
)

// HTTPError is a non-200 answer from the messages endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error %d", e.Status)
	}
	return fmt.Sprintf("http error %d: %s", e.Status, e.Body)
}

// ProcessError is a non-zero exit of the CLI that was not an auth failure.
type ProcessError struct {
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("claude exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("claude exited with code %d: %s", e.ExitCode, e.Output)
}

// Kind is a coarse classification of a call failure.
type Kind string

const (
	KindNone              Kind = ""
	KindNotConfigured     Kind = "not_configured"
	KindHTTPError         Kind = "http_error"
	KindTimeout           Kind = "timeout"
	KindProcessError      Kind = "process_error"
	KindNotAuthenticated  Kind = "not_authenticated"
	KindEmptyResponse     Kind = "empty_response"
	KindMalformedResponse Kind = "malformed_response"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var httpErr *HTTPError
	var procErr *ProcessError

	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.As(err, &httpErr):
		return KindHTTPError
	case errors.As(err, &procErr):
		return KindProcessError
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}
