package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
	speechmock "github.com/DandaAkhilReddy/audicia/pkg/provider/speech/mock"
)

func TestSpeechFallback_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := &speechmock.Provider{
		RecognizeResult: &speech.TranscriptionResult{Text: "from primary"},
	}
	secondary := &speechmock.Provider{
		RecognizeResult: &speech.TranscriptionResult{Text: "from secondary"},
	}

	f := NewSpeechFallback(primary, "openai", FallbackConfig{})
	f.AddFallback("openai-eu", secondary)

	res, err := f.Recognize(context.Background(), speech.Request{Format: "wav"})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "from primary" {
		t.Errorf("Text = %q, want the primary's result", res.Text)
	}
	if len(secondary.RecognizeCalls) != 0 {
		t.Errorf("secondary called %d times", len(secondary.RecognizeCalls))
	}
}

func TestSpeechFallback_FailsOverToSecondary(t *testing.T) {
	primary := &speechmock.Provider{RecognizeErr: errBackendDown}
	secondary := &speechmock.Provider{
		RecognizeResult: &speech.TranscriptionResult{Text: "from secondary"},
	}

	f := NewSpeechFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	f.AddFallback("openai-eu", secondary)

	res, err := f.Recognize(context.Background(), speech.Request{Format: "wav"})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "from secondary" {
		t.Errorf("Text = %q, want the fallback's result", res.Text)
	}
	if len(primary.RecognizeCalls) != 1 {
		t.Errorf("primary called %d times, want 1", len(primary.RecognizeCalls))
	}
}

func TestSpeechFallback_AllFailed(t *testing.T) {
	primary := &speechmock.Provider{RecognizeErr: errBackendDown}

	f := NewSpeechFallback(primary, "openai", FallbackConfig{})

	_, err := f.Recognize(context.Background(), speech.Request{Format: "wav"})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestSpeechFallback_SkipsPrimaryWithOpenCircuit(t *testing.T) {
	primary := &speechmock.Provider{RecognizeErr: errBackendDown}
	secondary := &speechmock.Provider{
		RecognizeResult: &speech.TranscriptionResult{Text: "from secondary"},
	}

	f := NewSpeechFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	f.AddFallback("openai-eu", secondary)

	// Two failures trip the primary's breaker.
	for i := 0; i < 2; i++ {
		if _, err := f.Recognize(context.Background(), speech.Request{Format: "wav"}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if _, err := f.Recognize(context.Background(), speech.Request{Format: "wav"}); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(primary.RecognizeCalls) != 2 {
		t.Errorf("primary called %d times, want 2 (circuit should be open)", len(primary.RecognizeCalls))
	}
}
