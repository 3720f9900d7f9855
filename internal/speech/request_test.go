package speech_test

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/yuki/kotoba/internal/speech"
)

var boundaryPattern = regexp.MustCompile(`^----WebKitFormBoundary[0-9a-f]{16}$`)

func testSession() *speech.SessionHandle {
	return &speech.SessionHandle{
		Cookies:   map[string]string{"csrf_cookie_name": "abc123", "ci_session": "s1"},
		CSRFToken: "abc123",
	}
}

func TestNewGenerateRequest_FormAndHeaders(t *testing.T) {
	client := newTestClient("https://tts.example.com/")
	text := "今日はいい天気ですね。\r\n--not a boundary--"

	req, err := client.NewGenerateRequest(context.Background(), testSession(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.URL.String() != "https://tts.example.com/open-tool/generate" {
		t.Errorf("unexpected url %s", req.URL)
	}
	if got := req.Header.Get("X-CSRF-TOKEN"); got != "abc123" {
		t.Errorf("expected X-CSRF-TOKEN abc123, got %q", got)
	}
	if got := req.Header.Get("Cookie"); got != "ci_session=s1; csrf_cookie_name=abc123" {
		t.Errorf("unexpected Cookie header %q", got)
	}
	if got := req.Header.Get("Origin"); got != "https://tts.example.com" {
		t.Errorf("unexpected Origin %q", got)
	}
	if got := req.Header.Get("X-Requested-With"); got != "XMLHttpRequest" {
		t.Errorf("unexpected X-Requested-With %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("bad content type: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("expected multipart/form-data, got %s", mediaType)
	}
	if !boundaryPattern.MatchString(params["boundary"]) {
		t.Errorf("unexpected boundary %q", params["boundary"])
	}

	mr := multipart.NewReader(req.Body, params["boundary"])
	wantOrder := []string{"locale", "text", "voice", "style", "csrf_token"}
	wantValues := map[string]string{
		"locale":     speech.DefaultLocale,
		"text":       text,
		"voice":      speech.DefaultVoice,
		"style":      speech.DefaultStyle,
		"csrf_token": "abc123",
	}
	var gotOrder []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading part: %v", err)
		}
		value, _ := io.ReadAll(part)
		name := part.FormName()
		gotOrder = append(gotOrder, name)
		if string(value) != wantValues[name] {
			t.Errorf("field %s: expected %q, got %q", name, wantValues[name], value)
		}
	}
	if strings.Join(gotOrder, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("expected field order %v, got %v", wantOrder, gotOrder)
	}
}

func TestNewGenerateRequest_FreshBoundary(t *testing.T) {
	client := newTestClient("https://tts.example.com")
	seen := make(map[string]bool)
	for range 5 {
		req, err := client.NewGenerateRequest(context.Background(), testSession(), "こんにちは")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, params, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
		if seen[params["boundary"]] {
			t.Errorf("boundary %q reused", params["boundary"])
		}
		seen[params["boundary"]] = true
	}
}

func TestNewGenerateRequest_EmptyText(t *testing.T) {
	client := newTestClient("https://tts.example.com")
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.NewGenerateRequest(context.Background(), testSession(), text)
		if !errors.Is(err, speech.ErrEmptyText) {
			t.Errorf("%q: expected ErrEmptyText, got %v", text, err)
		}
	}
}
