package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is a step of one playback attempt.
type State int

const (
	StateIdle State = iota
	StateBootstrapping
	StateRequesting
	StateClassifying
	StateSucceeded
	StateFallenBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapping:
		return "bootstrapping"
	case StateRequesting:
		return "requesting"
	case StateClassifying:
		return "classifying"
	case StateSucceeded:
		return "succeeded"
	case StateFallenBack:
		return "fallen_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// providerContentType is what the generate endpoint's audio decodes to when
// the response does not declare an audio type.
const providerContentType = "audio/wav"

// Source says where the audio of an Outcome came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// Outcome is the result of one Speak call.
type Outcome struct {
	State       State
	Trace       []State
	Audio       *AudioPayload
	ContentType string
	Source      Source
	// Cause is the provider failure that sent the attempt to the fallback.
	Cause error
}

// Speaker drives bootstrap, generate and classification once per call and
// falls back to a local synthesizer on any provider failure.
type Speaker struct {
	client   *Client
	fallback Synthesizer
}

// NewSpeaker creates a Speaker. fallback may be nil.
func NewSpeaker(client *Client, fallback Synthesizer) *Speaker {
	return &Speaker{client: client, fallback: fallback}
}

// FallbackName returns the fallback engine name, or "" when none is usable.
func (s *Speaker) FallbackName() string {
	if s.fallback == nil || !s.fallback.Available() {
		return ""
	}
	return s.fallback.Name()
}

// Speak returns audio for text. Provider failures never surface as errors;
// they route to the fallback. The returned error is ErrEmptyText, a context
// error when the caller aborted between stages, or ErrFallbackUnavailable
// (with the Outcome still populated) when nothing could speak.
func (s *Speaker) Speak(ctx context.Context, text string) (*Outcome, error) {
	if _, err := s.client.NewSpeechRequest(&SessionHandle{}, text); err != nil {
		return nil, err
	}

	start := time.Now()
	out := &Outcome{State: StateIdle, Trace: []State{StateIdle}}
	enter := func(st State) {
		out.State = st
		out.Trace = append(out.Trace, st)
		slog.Debug("speech state", "state", st.String())
	}

	cfg := s.client.Config()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enter(StateBootstrapping)
	bctx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	session, err := s.client.Bootstrap(bctx)
	cancel()
	if err != nil {
		return s.fallBack(ctx, out, text, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enter(StateRequesting)
	gctx, cancel := context.WithTimeout(ctx, cfg.GenerateTimeout)
	audio, err := s.client.Generate(gctx, session, text)
	cancel()

	var pe *ProviderError
	var fe *FormatError
	if err != nil && !errors.As(err, &pe) && !errors.As(err, &fe) {
		// Transport failure: the response never reached classification.
		return s.fallBack(ctx, out, text, err)
	}

	enter(StateClassifying)
	if err != nil {
		return s.fallBack(ctx, out, text, err)
	}

	enter(StateSucceeded)
	out.Audio = audio
	out.ContentType = providerContentType
	if audio.ContentType != "" {
		out.ContentType = audio.ContentType
	}
	out.Source = SourceProvider
	slog.Info("speech generated", "source", out.Source, "duration", time.Since(start))
	return out, nil
}

func (s *Speaker) fallBack(ctx context.Context, out *Outcome, text string, cause error) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.State = StateFallenBack
	out.Trace = append(out.Trace, StateFallenBack)
	out.Cause = cause
	slog.Warn("speech provider failed, falling back", "stage", out.Trace[len(out.Trace)-2].String(), "error", cause)

	if s.fallback == nil || !s.fallback.Available() {
		return out, fmt.Errorf("%w: provider failed (%v) and no local synthesizer is installed", ErrFallbackUnavailable, cause)
	}

	audio, contentType, err := s.fallback.Synthesize(ctx, text, s.client.Config().Locale)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrFallbackUnavailable, s.fallback.Name(), err)
	}
	out.Audio = &AudioPayload{Raw: audio}
	out.ContentType = contentType
	out.Source = SourceFallback
	return out, nil
}
