// Package genai defines the Provider interface for generative text backends.
//
// A genai provider wraps a remote or local language model API (e.g., OpenAI,
// Anthropic via any-llm, or a local Ollama instance) and exposes the one
// operation the clinical extraction stage needs: a single non-streaming
// completion with a system instruction, a user payload, and deterministic
// generation parameters. Tool calling, streaming, and conversation history
// are deliberately absent — the extraction contract is one strict-JSON
// completion per request.
//
// Implementations must be safe for concurrent use.
package genai

import (
	"context"
	"errors"
)

// ErrRateLimited is returned (possibly wrapped) when the backend throttles
// the request. Callers should retry with bounded exponential backoff.
var ErrRateLimited = errors.New("genai: provider rate limited")

// Usage holds token accounting information returned by the backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system instruction
	// and user payload.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a response.
type CompletionRequest struct {
	// SystemPrompt is the high-priority instruction injected before the user
	// payload. Providers without a dedicated system slot prepend it as a
	// system-role message.
	SystemPrompt string

	// UserPayload is the single user message driving the response.
	UserPayload string

	// Temperature controls output randomness. The extraction stage always
	// requests a low value; this is a correctness requirement for clinical
	// content, not a tuning knob.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// CompletionResponse is the full model reply for one request.
type CompletionResponse struct {
	// Content is the complete text of the reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any generative text backend.
//
// Implementations must be safe for concurrent use and must return promptly
// when ctx is cancelled.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Returns ErrRateLimited (possibly wrapped) when throttled, and an error
	// if the request fails or ctx is cancelled before the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
