package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when a speech request carries no text.
	ErrEmptyText = errors.New("speech: text is required")

	// ErrProviderUnreachable means the landing page could not be fetched or answered non-2xx.
	ErrProviderUnreachable = errors.New("speech: provider unreachable")

	// ErrSessionInitFailed means the landing page set no usable cookies.
	ErrSessionInitFailed = errors.New("speech: session init failed")

	// ErrMissingCSRFToken means neither the cookies nor the page carried a CSRF token.
	ErrMissingCSRFToken = errors.New("speech: missing csrf token")

	// ErrFallbackUnavailable means the provider failed and no local synthesizer could speak.
	ErrFallbackUnavailable = errors.New("speech: fallback unavailable")
)

// ProviderError is a response from the generate endpoint that did not carry audio.
type ProviderError struct {
	Status int // HTTP status, 0 when the body was classified without one
	Body   []byte
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("speech: provider error (status %d): %s", e.Status, preview(e.Body, 200))
	}
	return fmt.Sprintf("speech: provider error: %s", preview(e.Body, 200))
}

// FormatError is a response whose shape could not be recognised.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "speech: format error: " + e.Reason
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
