package shadowing_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/shadowing"
)

func TestCompare_Exact(t *testing.T) {
	res := shadowing.Compare("今日はいい天気ですね。", "今日は いい天気ですね")
	if res.Score != 100 {
		t.Errorf("expected 100, got %d", res.Score)
	}
	if len(res.Diffs) != 1 || res.Diffs[0].Op != "equal" {
		t.Errorf("expected one equal span, got %+v", res.Diffs)
	}
}

func TestCompare_WidthInsensitive(t *testing.T) {
	res := shadowing.Compare("ＡＢＣ１２３", "ABC123")
	if res.Score != 100 {
		t.Errorf("expected full-width input to match, got %d", res.Score)
	}
}

func TestCompare_MissingAndExtra(t *testing.T) {
	res := shadowing.Compare("わたしはがくせいです", "わたしはせんせいです")
	if res.Score <= 0 || res.Score >= 100 {
		t.Fatalf("expected partial score, got %d", res.Score)
	}
	var missing, extra bool
	for _, d := range res.Diffs {
		switch d.Op {
		case "missing":
			missing = true
		case "extra":
			extra = true
		}
	}
	if !missing || !extra {
		t.Errorf("expected both missing and extra spans, got %+v", res.Diffs)
	}
}

func TestCompare_Empty(t *testing.T) {
	if res := shadowing.Compare("ありがとう", ""); res.Score != 0 {
		t.Errorf("expected 0 for silent attempt, got %d", res.Score)
	}
	if res := shadowing.Compare("", ""); res.Score != 0 {
		t.Errorf("expected 0 for empty pair, got %d", res.Score)
	}
}

type fixedSTT struct{ text string }

func (f *fixedSTT) Name() string { return "fixed" }
func (f *fixedSTT) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	io.Copy(io.Discard, audio)
	return f.text, nil
}

func TestService_Score(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterSTT(&fixedSTT{text: "おはようございます"})
	svc := shadowing.NewService(reg)

	res, err := svc.Score(context.Background(), strings.NewReader("audio"), "audio/webm", "おはようございます。", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 100 || res.Transcript != "おはようございます" {
		t.Errorf("unexpected result %+v", res)
	}

	if _, err := svc.Score(context.Background(), strings.NewReader(""), "", " ", ""); !errors.Is(err, shadowing.ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
	if _, err := svc.Score(context.Background(), strings.NewReader(""), "", "x", "missing"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
