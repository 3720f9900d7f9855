package speech_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yuki/kotoba/internal/speech"
)

func newTestClient(url string) *speech.Client {
	cfg := speech.DefaultConfig()
	cfg.BaseURL = url
	return speech.NewClient(cfg, nil)
}

func TestBootstrap_TokenFromCookie(t *testing.T) {
	var gotUA, gotFetchMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotFetchMode = r.Header.Get("Sec-Fetch-Mode")
		http.SetCookie(w, &http.Cookie{Name: "ci_session", Value: "s1", Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: "csrf_cookie_name", Value: "abc123", Path: "/", MaxAge: 7200})
		w.Write([]byte(`<html><head><meta name="csrf-token" content="from-meta"></head></html>`))
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.CSRFToken != "abc123" {
		t.Errorf("expected cookie token to win, got %q", session.CSRFToken)
	}
	if session.Cookies["ci_session"] != "s1" {
		t.Errorf("expected ci_session cookie, got %v", session.Cookies)
	}
	if got := session.CookieHeader(); got != "ci_session=s1; csrf_cookie_name=abc123" {
		t.Errorf("unexpected cookie header %q", got)
	}
	if gotUA == "" || gotFetchMode != "navigate" {
		t.Errorf("expected browser navigation headers, got UA=%q mode=%q", gotUA, gotFetchMode)
	}
}

func TestBootstrap_TokenFromMetaTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "ci_session", Value: "s1"})
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html><html><head>
<meta charset="utf-8">
<meta content="tok-xyz" name="CSRF-Token" />
</head><body></body></html>`))
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.CSRFToken != "tok-xyz" {
		t.Errorf("expected token from meta tag, got %q", session.CSRFToken)
	}
}

func TestBootstrap_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.SetCookie(w, &http.Cookie{Name: "csrf_cookie_name", Value: "abc"})
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			want: speech.ErrProviderUnreachable,
		},
		{
			name: "redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/login", http.StatusFound)
			},
			want: speech.ErrProviderUnreachable,
		},
		{
			name: "no set-cookie",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<meta name="csrf-token" content="abc">`))
			},
			want: speech.ErrSessionInitFailed,
		},
		{
			name: "no token anywhere",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.SetCookie(w, &http.Cookie{Name: "ci_session", Value: "s1"})
				w.Write([]byte(`<html><head><meta name="viewport" content="width=device-width"></head></html>`))
			},
			want: speech.ErrMissingCSRFToken,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Bootstrap(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBootstrap_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Bootstrap(context.Background())
	if !errors.Is(err, speech.ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}
}
