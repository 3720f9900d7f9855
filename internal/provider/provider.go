package provider

import (
	"context"
	"io"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// StreamChunk represents a chunk of streaming LLM response.
type StreamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ChatRequest is one completion request. An empty Model selects the
// provider's configured model.
type ChatRequest struct {
	Messages []Message
	Model    string
}

// LLMProvider defines the interface for language model providers.
type LLMProvider interface {
	// Name returns the provider identifier.
	Name() string
	// Model returns the model used when a request does not name one.
	Model() string
	// ChatStream sends the request and streams the response via the callback.
	// The callback is called for each chunk. Return an error to stop streaming.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk) error) error
}

// STTProvider defines the interface for speech-to-text providers.
type STTProvider interface {
	// Name returns the provider identifier.
	Name() string
	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// Complete runs a streaming request to the end and returns the whole text.
func Complete(ctx context.Context, p LLMProvider, req ChatRequest) (string, error) {
	var content []byte
	err := p.ChatStream(ctx, req, func(c StreamChunk) error {
		content = append(content, c.Content...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(content), nil
}
