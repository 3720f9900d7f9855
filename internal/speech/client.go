package speech

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Doer sends a single HTTP request. *http.Client satisfies it, as does the
// TLS-fingerprinting transport returned by NewTLSTransport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the speech provider. It holds no per-session state and is
// safe for concurrent use.
type Client struct {
	cfg  Config
	doer Doer
}

// NewClient creates a Client. A nil doer uses a plain *http.Client that does
// not follow redirects, so a redirect to a login page surfaces as non-2xx.
func NewClient(cfg Config, doer Doer) *Client {
	if doer == nil {
		doer = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	cfg = cfg.withDefaults()
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{cfg: cfg, doer: doer}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Generate posts text to the generate endpoint using session and classifies
// the answer. A non-2xx answer is still classified so that an HTML error page
// reports as a FormatError; any other non-2xx answer is a ProviderError.
func (c *Client) Generate(ctx context.Context, session *SessionHandle, text string) (*AudioPayload, error) {
	req, err := c.NewGenerateRequest(ctx, session, text)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	slog.Debug("speech generate response",
		"status", resp.StatusCode,
		"content_type", contentType,
		"bytes", len(body))

	audio, err := Classify(body, contentType, ClassifyOptions{Threshold: c.cfg.AudioThreshold})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if _, ok := err.(*FormatError); ok {
			return nil, err
		}
		return nil, &ProviderError{Status: resp.StatusCode, Body: body}
	}
	if err != nil {
		if pe, ok := err.(*ProviderError); ok {
			pe.Status = resp.StatusCode
		}
		return nil, err
	}
	return audio, nil
}
