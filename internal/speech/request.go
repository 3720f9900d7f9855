package speech

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	boundaryPrefix   = "----WebKitFormBoundary"
	boundaryAttempts = 8
)

// SpeechRequest is the form the generate endpoint expects.
type SpeechRequest struct {
	Text      string
	Locale    string
	Voice     string
	Style     string
	CSRFToken string
}

// NewSpeechRequest combines a session with text and the configured voice.
func (c *Client) NewSpeechRequest(session *SessionHandle, text string) (SpeechRequest, error) {
	if strings.TrimSpace(text) == "" {
		return SpeechRequest{}, ErrEmptyText
	}
	return SpeechRequest{
		Text:      text,
		Locale:    c.cfg.Locale,
		Voice:     c.cfg.Voice,
		Style:     c.cfg.Style,
		CSRFToken: session.CSRFToken,
	}, nil
}

// EncodeMultipart writes the form fields in the order the site's own page
// sends them and returns the body with its Content-Type.
func (r SpeechRequest) EncodeMultipart() ([]byte, string, error) {
	boundary, err := newBoundary(r.Text)
	if err != nil {
		return nil, "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("setting boundary: %w", err)
	}

	fields := [][2]string{
		{"locale", r.Locale},
		{"text", r.Text},
		{"voice", r.Voice},
		{"style", r.Style},
		{"csrf_token", r.CSRFToken},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body.Bytes(), w.FormDataContentType(), nil
}

// NewGenerateRequest builds the POST to the generate endpoint carrying the
// session cookies and the CSRF token in both the form and X-CSRF-TOKEN.
func (c *Client) NewGenerateRequest(ctx context.Context, session *SessionHandle, text string) (*http.Request, error) {
	sr, err := c.NewSpeechRequest(session, text)
	if err != nil {
		return nil, err
	}
	body, contentType, err := sr.EncodeMultipart()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.GeneratePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
	}
	req.Header = xhrHeaders(c.cfg.BaseURL)
	req.Header.Set("Cookie", session.CookieHeader())
	req.Header.Set("X-CSRF-TOKEN", session.CSRFToken)
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

// newBoundary returns a WebKit-style boundary that does not occur in text.
func newBoundary(text string) (string, error) {
	for range boundaryAttempts {
		id := uuid.New()
		b := boundaryPrefix + strings.ReplaceAll(id.String(), "-", "")[:16]
		if !strings.Contains(text, b) {
			return b, nil
		}
	}
	return "", fmt.Errorf("could not pick a boundary absent from the text")
}
