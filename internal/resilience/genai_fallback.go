package resilience

import (
	"context"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
)

// GenAIFallback implements [genai.Provider] with automatic failover across
// multiple generative backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback is
// tried.
type GenAIFallback struct {
	group *FallbackGroup[genai.Provider]
}

var _ genai.Provider = (*GenAIFallback)(nil)

// NewGenAIFallback creates a [GenAIFallback] with primary as the preferred
// backend.
func NewGenAIFallback(primary genai.Provider, primaryName string, cfg FallbackConfig) *GenAIFallback {
	return &GenAIFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional generative provider as a fallback.
func (f *GenAIFallback) AddFallback(name string, provider genai.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *GenAIFallback) Complete(ctx context.Context, req genai.CompletionRequest) (*genai.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p genai.Provider) (*genai.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
