package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yuki/kotoba/internal/provider"
)

// Defaults for the OpenAI-compatible provider: Gemini's compatibility
// endpoint.
const (
	DefaultCompatURL   = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	DefaultCompatModel = "gemini-2.5-flash-preview-05-20"
)

// CompatConfig configures a CompatProvider.
type CompatConfig struct {
	APIKey string
	// URL is either the full chat completions URL or the API base URL.
	URL   string
	Model string
	// ReasoningEffort is passed through when set, e.g. "none".
	ReasoningEffort string
}

// CompatProvider implements LLMProvider for any endpoint that speaks the
// OpenAI chat completions protocol.
type CompatProvider struct {
	client *goopenai.Client
	model  string
	effort string
}

// NewCompatProvider creates a provider for cfg. Empty fields take the
// package defaults.
func NewCompatProvider(cfg CompatConfig) *CompatProvider {
	url := cfg.URL
	if url == "" {
		url = DefaultCompatURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultCompatModel
	}

	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = baseURL(url)
	return &CompatProvider{
		client: goopenai.NewClientWithConfig(oc),
		model:  model,
		effort: cfg.ReasoningEffort,
	}
}

// baseURL turns a chat completions URL into the base the client appends
// "/chat/completions" to.
func baseURL(url string) string {
	url = strings.TrimRight(url, "/")
	return strings.TrimSuffix(url, "/chat/completions")
}

func (p *CompatProvider) Name() string  { return "compat" }
func (p *CompatProvider) Model() string { return p.model }

func (p *CompatProvider) ChatStream(ctx context.Context, req provider.ChatRequest, onChunk func(provider.StreamChunk) error) error {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:           modelOr(req.Model, p.model),
		Messages:        msgs,
		Stream:          true,
		ReasoningEffort: p.effort,
	})
	if err != nil {
		return fmt.Errorf("compat stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return onChunk(provider.StreamChunk{Done: true})
		}
		if err != nil {
			return fmt.Errorf("compat stream: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onChunk(provider.StreamChunk{Content: choice.Delta.Content}); err != nil {
				return err
			}
		}
	}
}
