package resilience

import (
	"context"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// SpeechFallback implements [speech.Provider] with automatic failover across
// multiple recognition backends, each guarded by its own circuit breaker.
type SpeechFallback struct {
	group *FallbackGroup[speech.Provider]
}

var _ speech.Provider = (*SpeechFallback)(nil)

// NewSpeechFallback creates a [SpeechFallback] with primary as the preferred
// backend.
func NewSpeechFallback(primary speech.Provider, primaryName string, cfg FallbackConfig) *SpeechFallback {
	return &SpeechFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognition provider as a fallback.
func (f *SpeechFallback) AddFallback(name string, provider speech.Provider) {
	f.group.AddFallback(name, provider)
}

// Recognize transcribes through the first healthy provider. If the primary
// fails, subsequent fallbacks are tried.
func (f *SpeechFallback) Recognize(ctx context.Context, req speech.Request) (*speech.TranscriptionResult, error) {
	return ExecuteWithResult(f.group, func(p speech.Provider) (*speech.TranscriptionResult, error) {
		return p.Recognize(ctx, req)
	})
}
