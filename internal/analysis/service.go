// Package analysis turns a Japanese sentence into a translation or a
// grammar and vocabulary explanation using an LLM provider.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/provider/llm"
)

var (
	ErrEmptyText   = errors.New("analysis: text is required")
	ErrUnknownKind = errors.New("analysis: unknown kind")
	ErrNoAPIKey    = errors.New("analysis: no API key configured")
)

// Request is one analysis call. APIKey and APIURL come from the user's own
// settings and, when set, route the call to an OpenAI-compatible endpoint
// for this request only.
type Request struct {
	Kind       Kind
	Text       string
	ProviderID string
	Model      string
	APIKey     string
	APIURL     string
}

// Result is a completed analysis.
type Result struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Service resolves a provider per request and runs the prompt.
type Service struct {
	registry *provider.Registry
	compat   llm.CompatConfig
}

// NewService creates a Service. compat supplies the server-side key, URL and
// model used when a request carries only part of an override.
func NewService(registry *provider.Registry, compat llm.CompatConfig) *Service {
	return &Service{registry: registry, compat: compat}
}

// Resolve returns the provider that serves req.
func (s *Service) Resolve(req Request) (provider.LLMProvider, error) {
	if req.APIKey == "" && req.APIURL == "" {
		p, err := s.registry.GetLLM(req.ProviderID)
		if err != nil {
			if req.ProviderID == "" {
				return nil, fmt.Errorf("%w: %v", ErrNoAPIKey, err)
			}
			return nil, err
		}
		return p, nil
	}

	cfg := s.compat
	if req.APIKey != "" {
		cfg.APIKey = req.APIKey
	}
	if req.APIURL != "" {
		cfg.URL = req.APIURL
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return llm.NewCompatProvider(cfg), nil
}

func (s *Service) prepare(req Request) (provider.LLMProvider, provider.ChatRequest, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, provider.ChatRequest{}, ErrEmptyText
	}
	prompt, err := Prompt(req.Kind, req.Text)
	if err != nil {
		return nil, provider.ChatRequest{}, err
	}
	p, err := s.Resolve(req)
	if err != nil {
		return nil, provider.ChatRequest{}, err
	}
	return p, provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
		Model:    req.Model,
	}, nil
}

// Stream runs req and forwards chunks to onChunk as they arrive. It returns
// the provider and model that served the call.
func (s *Service) Stream(ctx context.Context, req Request, onChunk func(provider.StreamChunk) error) (Result, error) {
	p, chatReq, res, err := s.start(req)
	if err != nil {
		return Result{}, err
	}
	if err := p.ChatStream(ctx, chatReq, onChunk); err != nil {
		return res, fmt.Errorf("%s %s: %w", res.Provider, req.Kind, err)
	}
	return res, nil
}

// Complete runs req to the end and returns the accumulated text.
func (s *Service) Complete(ctx context.Context, req Request) (Result, error) {
	p, chatReq, res, err := s.start(req)
	if err != nil {
		return Result{}, err
	}
	content, err := provider.Complete(ctx, p, chatReq)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", res.Provider, req.Kind, err)
	}
	res.Content = content
	return res, nil
}

func (s *Service) start(req Request) (provider.LLMProvider, provider.ChatRequest, Result, error) {
	p, chatReq, err := s.prepare(req)
	if err != nil {
		return nil, provider.ChatRequest{}, Result{}, err
	}
	res := Result{Provider: p.Name(), Model: chatReq.Model}
	if res.Model == "" {
		res.Model = p.Model()
	}
	slog.Info("analysis started", "kind", req.Kind, "provider", res.Provider, "model", res.Model)
	return p, chatReq, res, nil
}
