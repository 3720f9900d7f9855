package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Synthesizer is a local, non-networked speech engine used when the
// provider cannot be reached or returns no audio.
type Synthesizer interface {
	Name() string
	// Available reports whether the engine can run in this process.
	Available() bool
	Synthesize(ctx context.Context, text, lang string) (audio []byte, contentType string, err error)
}

// CommandConfig configures a CommandSynthesizer.
type CommandConfig struct {
	// Binary is looked up in PATH, e.g. "espeak-ng".
	Binary string
	// Args are passed before the text. "{lang}" is replaced with the
	// language tag.
	Args []string
	// ContentType of what the binary writes to stdout.
	ContentType string
}

// DefaultCommandConfig speaks through espeak-ng, which writes WAV to stdout.
func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Binary:      "espeak-ng",
		Args:        []string{"-v", "{lang}", "-s", "150", "--stdout"},
		ContentType: "audio/wav",
	}
}

// CommandSynthesizer runs a local TTS binary and returns its stdout.
type CommandSynthesizer struct {
	cfg  CommandConfig
	path string // resolved binary, empty when not installed
}

// NewCommandSynthesizer resolves cfg.Binary once. A missing binary is not an
// error; Available reports false instead.
func NewCommandSynthesizer(cfg CommandConfig) *CommandSynthesizer {
	if cfg.ContentType == "" {
		cfg.ContentType = "audio/wav"
	}
	s := &CommandSynthesizer{cfg: cfg}
	if cfg.Binary != "" {
		if p, err := exec.LookPath(cfg.Binary); err == nil {
			s.path = p
		}
	}
	return s
}

func (s *CommandSynthesizer) Name() string { return "command:" + s.cfg.Binary }

func (s *CommandSynthesizer) Available() bool { return s.path != "" }

// Synthesize runs the binary with text as the final argument.
func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, string, error) {
	if !s.Available() {
		return nil, "", fmt.Errorf("%s not installed", s.cfg.Binary)
	}

	short := lang
	if i := strings.IndexByte(short, '-'); i > 0 {
		short = short[:i]
	}
	args := make([]string, 0, len(s.cfg.Args)+1)
	for _, a := range s.cfg.Args {
		args = append(args, strings.ReplaceAll(a, "{lang}", short))
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("%s failed: %w (stderr: %s)", s.cfg.Binary, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, "", fmt.Errorf("%s produced no audio", s.cfg.Binary)
	}
	return stdout.Bytes(), s.cfg.ContentType, nil
}
