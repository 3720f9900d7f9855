package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// SessionHandle is the cookie set and CSRF token of one emulated browser
// visit. It is built per speech request and never reused.
type SessionHandle struct {
	Cookies   map[string]string
	CSRFToken string
}

// CookieHeader renders the cookies as a Cookie request header value,
// ordered by name.
func (s *SessionHandle) CookieHeader() string {
	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(s.Cookies[name])
	}
	return sb.String()
}

// Bootstrap visits the landing page and returns a fresh session.
func (c *Client) Bootstrap(ctx context.Context) (*SessionHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("creating landing request: %w", err)
	}
	req.Header = landingHeaders()

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: landing page status %d", ErrProviderUnreachable, resp.StatusCode)
	}

	if len(resp.Header.Values("Set-Cookie")) == 0 {
		return nil, fmt.Errorf("%w: no Set-Cookie header", ErrSessionInitFailed)
	}

	cookies := make(map[string]string)
	for _, ck := range resp.Cookies() {
		if ck.Name == "" || ck.Value == "" {
			continue
		}
		cookies[ck.Name] = ck.Value
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: no usable cookie pairs", ErrSessionInitFailed)
	}

	token := cookies[c.cfg.CSRFCookieName]
	if token == "" {
		body, err := readBody(resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingCSRFToken, err)
		}
		token = csrfFromHTML(body)
		if token != "" {
			slog.Debug("csrf token taken from page meta tag")
		}
	}
	if token == "" {
		return nil, ErrMissingCSRFToken
	}

	slog.Debug("speech session established", "cookies", len(cookies))
	return &SessionHandle{Cookies: cookies, CSRFToken: token}, nil
}

// csrfFromHTML returns the content of <meta name="csrf-token">, if any.
func csrfFromHTML(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var metaName, content string
			for more := true; more; {
				var key, val []byte
				key, val, more = z.TagAttr()
				switch string(key) {
				case "name":
					metaName = string(val)
				case "content":
					content = string(val)
				}
			}
			if strings.EqualFold(metaName, "csrf-token") && content != "" {
				return content
			}
		}
	}
}
