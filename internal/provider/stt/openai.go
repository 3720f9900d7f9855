package stt

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISTTProvider implements STTProvider using OpenAI Whisper.
type OpenAISTTProvider struct {
	client   *openai.Client
	language string
}

// NewOpenAISTTProvider creates a Whisper provider that transcribes language,
// an ISO-639-1 code such as "ja".
func NewOpenAISTTProvider(apiKey, language string) *OpenAISTTProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISTTProvider{client: &client, language: language}
}

func (p *OpenAISTTProvider) Name() string { return "openai" }

func (p *OpenAISTTProvider) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, "attempt"+extensionFor(contentType), contentType),
		Model: openai.AudioModelWhisper1,
	}
	if p.language != "" {
		params.Language = openai.String(p.language)
	}

	transcription, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai STT error: %w", err)
	}

	return transcription.Text, nil
}

// extensionFor picks the file extension Whisper uses to detect the container.
func extensionFor(contentType string) string {
	switch baseType(contentType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
