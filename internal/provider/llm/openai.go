package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yuki/kotoba/internal/provider"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements LLMProvider for the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI GPT provider. An empty model selects
// DefaultOpenAIModel.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) ChatStream(ctx context.Context, req provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(m.Content))
		case "user":
			chatMessages = append(chatMessages, openai.UserMessage(m.Content))
		case "assistant":
			chatMessages = append(chatMessages, openai.AssistantMessage(m.Content))
		}
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelOr(req.Model, p.model)),
		Messages: chatMessages,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				if err := onChunk(provider.StreamChunk{Content: choice.Delta.Content}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream error: %w", err)
	}

	return onChunk(provider.StreamChunk{Done: true})
}

func modelOr(requested, configured string) string {
	if requested != "" {
		return requested
	}
	return configured
}
