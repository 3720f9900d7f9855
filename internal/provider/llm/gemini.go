package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/yuki/kotoba/internal/provider"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements LLMProvider for Google Gemini through the native
// genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Google Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) ChatStream(ctx context.Context, req provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	var systemInstruction string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemInstruction = m.Content
		case "user":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}

	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	for result, err := range p.client.Models.GenerateContentStream(ctx, modelOr(req.Model, p.model), contents, config) {
		if err != nil {
			return fmt.Errorf("gemini stream error: %w", err)
		}
		if text := result.Text(); text != "" {
			if err := onChunk(provider.StreamChunk{Content: text}); err != nil {
				return err
			}
		}
	}

	return onChunk(provider.StreamChunk{Done: true})
}
