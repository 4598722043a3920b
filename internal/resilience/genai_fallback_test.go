package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	genaimock "github.com/DandaAkhilReddy/audicia/pkg/provider/genai/mock"
)

func TestGenAIFallback_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: "primary"},
	}
	secondary := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: "secondary"},
	}

	f := NewGenAIFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	resp, err := f.Complete(context.Background(), genai.CompletionRequest{UserPayload: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "primary" {
		t.Errorf("Content = %q, want primary", resp.Content)
	}
	if len(secondary.CompleteCalls) != 0 {
		t.Errorf("secondary called %d times", len(secondary.CompleteCalls))
	}
}

func TestGenAIFallback_FailsOverToSecondary(t *testing.T) {
	primary := &genaimock.Provider{CompleteErr: errors.New("unavailable")}
	secondary := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: "secondary"},
	}

	f := NewGenAIFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	f.AddFallback("secondary", secondary)

	resp, err := f.Complete(context.Background(), genai.CompletionRequest{UserPayload: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "secondary" {
		t.Errorf("Content = %q, want secondary", resp.Content)
	}
}

func TestGenAIFallback_AllFailed(t *testing.T) {
	primary := &genaimock.Provider{CompleteErr: errors.New("down")}

	f := NewGenAIFallback(primary, "primary", FallbackConfig{})

	_, err := f.Complete(context.Background(), genai.CompletionRequest{UserPayload: "hi"})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}
