package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yuki/kotoba/internal/analysis"
	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/provider/llm"
)

type recordingLLM struct {
	name string
	last provider.ChatRequest
}

func (m *recordingLLM) Name() string  { return m.name }
func (m *recordingLLM) Model() string { return "default-model" }
func (m *recordingLLM) ChatStream(_ context.Context, req provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	m.last = req
	if err := onChunk(provider.StreamChunk{Content: "译文"}); err != nil {
		return err
	}
	return onChunk(provider.StreamChunk{Done: true})
}

func newService(p provider.LLMProvider, compat llm.CompatConfig) *analysis.Service {
	reg := provider.NewRegistry()
	if p != nil {
		reg.RegisterLLM(p)
	}
	return analysis.NewService(reg, compat)
}

func TestService_CompleteUsesDefaultProvider(t *testing.T) {
	m := &recordingLLM{name: "mock"}
	svc := newService(m, llm.CompatConfig{})

	res, err := svc.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: "猫が好きです"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "译文" || res.Provider != "mock" || res.Model != "default-model" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(m.last.Messages) != 1 || m.last.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", m.last.Messages)
	}
	prompt := m.last.Messages[0].Content
	if !strings.Contains(prompt, `"猫が好きです"`) || !strings.Contains(prompt, "## 词汇表") {
		t.Errorf("translation prompt not rendered: %s", prompt)
	}
}

func TestService_ExplainPromptAndModel(t *testing.T) {
	m := &recordingLLM{name: "mock"}
	svc := newService(m, llm.CompatConfig{})

	res, err := svc.Complete(context.Background(), analysis.Request{Kind: analysis.KindExplain, Text: "行きます", Model: "custom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "custom" || m.last.Model != "custom" {
		t.Errorf("expected model override, got result %q request %q", res.Model, m.last.Model)
	}
	if !strings.Contains(m.last.Messages[0].Content, "原文：\n行きます") {
		t.Errorf("explanation prompt not rendered: %s", m.last.Messages[0].Content)
	}
}

func TestService_Errors(t *testing.T) {
	svc := newService(&recordingLLM{name: "mock"}, llm.CompatConfig{})

	_, err := svc.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: " "})
	if !errors.Is(err, analysis.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	_, err = svc.Complete(context.Background(), analysis.Request{Kind: "summarize", Text: "x"})
	if !errors.Is(err, analysis.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	_, err = svc.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: "x", ProviderID: "missing"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}

	empty := newService(nil, llm.CompatConfig{})
	_, err = empty.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: "x"})
	if !errors.Is(err, analysis.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey without providers, got %v", err)
	}
	_, err = empty.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: "x", APIURL: "https://example.com/v1"})
	if !errors.Is(err, analysis.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey for URL override without key, got %v", err)
	}
}

func TestService_UserKeyRoutesToCompatEndpoint(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"hello"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	m := &recordingLLM{name: "mock"}
	svc := newService(m, llm.CompatConfig{APIKey: "server-key"})

	res, err := svc.Complete(context.Background(), analysis.Request{
		Kind:   analysis.KindTranslate,
		Text:   "はい",
		APIKey: "user-key",
		APIURL: srv.URL + "/chat/completions",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "compat" || res.Content != "hello" {
		t.Errorf("unexpected result %+v", res)
	}
	if gotAuth != "Bearer user-key" {
		t.Errorf("expected user key on the wire, got %q", gotAuth)
	}
	if m.last.Messages != nil {
		t.Error("registry provider must not be called when overriding")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]analysis.Kind{
		"translate":   analysis.KindTranslate,
		"Explanation": analysis.KindExplain,
		"explain":     analysis.KindExplain,
	} {
		got, err := analysis.ParseKind(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := analysis.ParseKind("poem"); !errors.Is(err, analysis.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

type failingLLM struct{ recordingLLM }

func (m *failingLLM) ChatStream(_ context.Context, _ provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	onChunk(provider.StreamChunk{Content: "partial"})
	return errUpstream
}

var errUpstream = errors.New("upstream closed")

func TestService_CompleteWrapsProviderError(t *testing.T) {
	svc := newService(&failingLLM{recordingLLM{name: "flaky"}}, llm.CompatConfig{})

	res, err := svc.Complete(context.Background(), analysis.Request{Kind: analysis.KindTranslate, Text: "はい"})
	if !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "flaky translate") {
		t.Errorf("expected provider and kind in error, got %q", err)
	}
	if res.Provider != "flaky" || res.Content != "" {
		t.Errorf("expected provider set and no content, got %+v", res)
	}
}
