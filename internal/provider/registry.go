package provider

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound is returned for an unknown provider name or a missing default.
var ErrNotFound = errors.New("provider not found")

// Registry manages available providers and the default of each kind.
type Registry struct {
	mu         sync.RWMutex
	llms       map[string]LLMProvider
	stt        map[string]STTProvider
	defaultLLM string
	defaultSTT string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		llms: make(map[string]LLMProvider),
		stt:  make(map[string]STTProvider),
	}
}

// RegisterLLM registers a language model provider. The first one registered
// becomes the default until SetDefaultLLM is called.
func (r *Registry) RegisterLLM(p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llms[p.Name()] = p
	if r.defaultLLM == "" {
		r.defaultLLM = p.Name()
	}
}

// RegisterSTT registers a speech-to-text provider. The first one registered
// becomes the default until SetDefaultSTT is called.
func (r *Registry) RegisterSTT(p STTProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[p.Name()] = p
	if r.defaultSTT == "" {
		r.defaultSTT = p.Name()
	}
}

// SetDefaultLLM selects the provider used when a request names none.
func (r *Registry) SetDefaultLLM(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.llms[name]; !ok {
		return fmt.Errorf("LLM provider %q: %w", name, ErrNotFound)
	}
	r.defaultLLM = name
	return nil
}

// SetDefaultSTT selects the provider used when a request names none.
func (r *Registry) SetDefaultSTT(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stt[name]; !ok {
		return fmt.Errorf("STT provider %q: %w", name, ErrNotFound)
	}
	r.defaultSTT = name
	return nil
}

// GetLLM returns the named LLM provider, or the default for an empty name.
func (r *Registry) GetLLM(name string) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultLLM
	}
	p, ok := r.llms[name]
	if !ok {
		if name == "" {
			return nil, fmt.Errorf("no LLM provider configured: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("LLM provider %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// GetSTT returns the named STT provider, or the default for an empty name.
func (r *Registry) GetSTT(name string) (STTProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultSTT
	}
	p, ok := r.stt[name]
	if !ok {
		if name == "" {
			return nil, fmt.Errorf("no STT provider configured: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("STT provider %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// ListLLMs returns names of all registered LLM providers, sorted.
func (r *Registry) ListLLMs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llms))
	for name := range r.llms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListSTT returns names of all registered STT providers, sorted.
func (r *Registry) ListSTT() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stt))
	for name := range r.stt {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultLLM returns the name of the default LLM provider.
func (r *Registry) DefaultLLM() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultLLM
}
