package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	speech map[string]func(ProviderEntry) (speech.Provider, error)
	genai  map[string]func(ProviderEntry) (genai.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		speech: make(map[string]func(ProviderEntry) (speech.Provider, error)),
		genai:  make(map[string]func(ProviderEntry) (genai.Provider, error)),
	}
}

// RegisterSpeech registers a speech provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSpeech(name string, factory func(ProviderEntry) (speech.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// RegisterGenAI registers a generative text provider factory under name.
func (r *Registry) RegisterGenAI(name string, factory func(ProviderEntry) (genai.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.genai[name] = factory
}

// CreateSpeech instantiates a speech provider using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSpeech(entry ProviderEntry) (speech.Provider, error) {
	r.mu.RLock()
	factory, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateGenAI instantiates a generative text provider using the factory
// registered under entry.Name.
func (r *Registry) CreateGenAI(entry ProviderEntry) (genai.Provider, error) {
	r.mu.RLock()
	factory, ok := r.genai[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: genai/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
