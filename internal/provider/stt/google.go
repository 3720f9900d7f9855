package stt

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleSTTProvider implements STTProvider using Google Cloud Speech-to-Text.
type GoogleSTTProvider struct {
	projectID    string
	languageCode string
}

// NewGoogleSTTProvider creates a new Google STT provider for a BCP-47
// language code such as "ja-JP".
func NewGoogleSTTProvider(projectID, languageCode string) *GoogleSTTProvider {
	if languageCode == "" {
		languageCode = "ja-JP"
	}
	return &GoogleSTTProvider{projectID: projectID, languageCode: languageCode}
}

func (p *GoogleSTTProvider) Name() string { return "google" }

func (p *GoogleSTTProvider) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("google STT client error: %w", err)
	}
	defer client.Close()

	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("google STT read error: %w", err)
	}

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   encodingFor(contentType),
		LanguageCode:               p.languageCode,
		EnableAutomaticPunctuation: true,
	}
	// Containers with a header carry their own rate.
	if cfg.Encoding == speechpb.RecognitionConfig_LINEAR16 {
		cfg.SampleRateHertz = 16000
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: data,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google STT recognize error: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			sb.WriteString(result.Alternatives[0].Transcript)
		}
	}

	return sb.String(), nil
}

func encodingFor(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	switch baseType(contentType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return speechpb.RecognitionConfig_LINEAR16
	case "audio/mp3", "audio/mpeg":
		return speechpb.RecognitionConfig_MP3
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC
	default:
		return speechpb.RecognitionConfig_WEBM_OPUS
	}
}

// baseType strips parameters such as ";codecs=opus".
func baseType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
