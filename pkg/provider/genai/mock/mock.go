// Package mock provides a test double for the genai.Provider interface.
//
// Use Provider in unit tests to script model replies without a live backend
// and to assert on the completion requests the extraction stage built.
package mock

import (
	"context"
	"sync"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req genai.CompletionRequest
}

// Provider is a mock implementation of genai.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set CompleteErr to inject errors.
//
// CompleteResponses, when non-empty, is consumed one element per call and
// takes precedence over CompleteResponse; this lets a test script a bad first
// reply followed by a good retry reply.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete when CompleteResponses is
	// exhausted or empty. May be nil (returns nil, nil).
	CompleteResponse *genai.CompletionResponse

	// CompleteResponses is an ordered queue of responses, one per call.
	CompleteResponses []*genai.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

var _ genai.Provider = (*Provider)(nil)

// Complete implements genai.Provider.
func (p *Provider) Complete(ctx context.Context, req genai.CompletionRequest) (*genai.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	var resp *genai.CompletionResponse
	if len(p.CompleteResponses) > 0 {
		resp = p.CompleteResponses[0]
		p.CompleteResponses = p.CompleteResponses[1:]
	} else {
		resp = p.CompleteResponse
	}
	p.mu.Unlock()

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	return resp, nil
}
