package provider_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/yuki/kotoba/internal/provider"
)

type mockLLM struct {
	name   string
	chunks []string
	err    error
}

func (m *mockLLM) Name() string  { return m.name }
func (m *mockLLM) Model() string { return "mock-model" }
func (m *mockLLM) ChatStream(_ context.Context, _ provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	for _, c := range m.chunks {
		if err := onChunk(provider.StreamChunk{Content: c}); err != nil {
			return err
		}
	}
	if m.err != nil {
		return m.err
	}
	return onChunk(provider.StreamChunk{Done: true})
}

type mockSTT struct{ name string }

func (m *mockSTT) Name() string { return m.name }
func (m *mockSTT) Transcribe(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "transcribed text", nil
}

func TestRegistry_RegisterAndGetLLM(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterLLM(&mockLLM{name: "test-llm"})

	p, err := reg.GetLLM("test-llm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "test-llm" {
		t.Errorf("expected name %q, got %q", "test-llm", p.Name())
	}
}

func TestRegistry_GetLLM_NotFound(t *testing.T) {
	reg := provider.NewRegistry()
	_, err := reg.GetLLM("nonexistent")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for nonexistent provider, got %v", err)
	}
	if _, err := reg.GetLLM(""); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when no default exists, got %v", err)
	}
}

func TestRegistry_RegisterAndGetSTT(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterSTT(&mockSTT{name: "test-stt"})

	p, err := reg.GetSTT("test-stt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "test-stt" {
		t.Errorf("expected name %q, got %q", "test-stt", p.Name())
	}
}

func TestRegistry_Defaults(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterLLM(&mockLLM{name: "llm-a"})
	reg.RegisterLLM(&mockLLM{name: "llm-b"})

	p, err := reg.GetLLM("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "llm-a" {
		t.Errorf("expected first registered as default, got %q", p.Name())
	}

	if err := reg.SetDefaultLLM("llm-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.DefaultLLM() != "llm-b" {
		t.Errorf("expected default llm-b, got %q", reg.DefaultLLM())
	}
	if err := reg.SetDefaultLLM("missing"); err == nil {
		t.Error("expected error for unknown default")
	}
	if err := reg.SetDefaultSTT("missing"); err == nil {
		t.Error("expected error for unknown STT default")
	}
}

func TestRegistry_ListProviders(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterLLM(&mockLLM{name: "llm-b"})
	reg.RegisterLLM(&mockLLM{name: "llm-a"})
	reg.RegisterSTT(&mockSTT{name: "stt-a"})

	llms := reg.ListLLMs()
	if len(llms) != 2 || llms[0] != "llm-a" {
		t.Errorf("expected sorted [llm-a llm-b], got %v", llms)
	}

	stts := reg.ListSTT()
	if len(stts) != 1 {
		t.Errorf("expected 1 STT, got %d", len(stts))
	}
}

func TestComplete(t *testing.T) {
	p := &mockLLM{name: "m", chunks: []string{"こん", "にち", "は"}}
	got, err := provider.Complete(context.Background(), p, provider.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "こんにちは" {
		t.Errorf("expected joined content, got %q", got)
	}

	failing := &mockLLM{name: "f", chunks: []string{"partial"}, err: errors.New("boom")}
	if _, err := provider.Complete(context.Background(), failing, provider.ChatRequest{}); err == nil {
		t.Error("expected stream error to surface")
	}
}
