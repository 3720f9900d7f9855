// Package shadowing scores a spoken repetition of a sentence by transcribing
// it and diffing the transcript against the target text.
package shadowing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/unicode/norm"

	"github.com/yuki/kotoba/internal/provider"
)

var ErrEmptyTarget = errors.New("shadowing: target text is required")

// Diff is one span of the comparison. Op is "equal", "missing" (in the
// target but not spoken) or "extra" (spoken but not in the target).
type Diff struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// Result is a scored attempt.
type Result struct {
	Transcript string `json:"transcript"`
	Target     string `json:"target"`
	// Score is 0 to 100, the share of the target reproduced.
	Score int    `json:"score"`
	Diffs []Diff `json:"diffs"`
}

// Compare scores transcript against target. Whitespace, punctuation and
// character width are ignored.
func Compare(target, transcript string) Result {
	t := normalize(target)
	a := normalize(transcript)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(t, a, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	res := Result{Transcript: transcript, Target: target, Diffs: make([]Diff, 0, len(diffs))}
	for _, d := range diffs {
		op := "equal"
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = "missing"
		case diffmatchpatch.DiffInsert:
			op = "extra"
		}
		res.Diffs = append(res.Diffs, Diff{Op: op, Text: d.Text})
	}

	longest := max(len([]rune(t)), len([]rune(a)))
	if longest == 0 {
		res.Score = 0
		return res
	}
	dist := dmp.DiffLevenshtein(diffs)
	res.Score = int(math.Round(100 * (1 - float64(dist)/float64(longest))))
	return res
}

func normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}

// Service transcribes attempts with a registered STT provider.
type Service struct {
	registry *provider.Registry
}

// NewService creates a Service.
func NewService(registry *provider.Registry) *Service {
	return &Service{registry: registry}
}

// Score transcribes audio with the named (or default) STT provider and
// compares it with target.
func (s *Service) Score(ctx context.Context, audio io.Reader, contentType, target, providerID string) (Result, error) {
	if strings.TrimSpace(target) == "" {
		return Result{}, ErrEmptyTarget
	}
	p, err := s.registry.GetSTT(providerID)
	if err != nil {
		return Result{}, err
	}
	transcript, err := p.Transcribe(ctx, audio, contentType)
	if err != nil {
		return Result{}, fmt.Errorf("transcribing attempt: %w", err)
	}

	res := Compare(target, transcript)
	slog.Info("shadowing scored", "provider", p.Name(), "score", res.Score)
	return res, nil
}
