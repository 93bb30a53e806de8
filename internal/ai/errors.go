package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned before any network call when no key is configured.
	ErrMissingAPIKey = errors.New("API Key is missing. Please configure it with: wordpeek config set-key <api-key>")
	// ErrInvalidFormat means a non-streamed body could not be parsed.
	ErrInvalidFormat = errors.New("invalid response format")
)

// HTTPError is a non-2xx upstream response. Body is surfaced verbatim.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// UpstreamError is an error object returned inside a 2xx JSON body.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

// TransportError wraps a network or read failure while talking upstream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
