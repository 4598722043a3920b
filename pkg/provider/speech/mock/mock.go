// Package mock provides a test double for the speech.Provider interface.
//
// Use Provider in unit tests to feed controlled transcription results into
// the pipeline without a live recognition backend and to assert on the
// requests the pipeline built.
//
// Example:
//
//	p := &mock.Provider{
//	    RecognizeResult: &speech.TranscriptionResult{Text: "chest pain"},
//	}
//	res, err := p.Recognize(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// RecognizeCall records a single invocation of Recognize.
type RecognizeCall struct {
	// Ctx is the context passed to Recognize.
	Ctx context.Context
	// Req is the Request passed to Recognize.
	Req speech.Request
}

// Provider is a mock implementation of speech.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set RecognizeErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// RecognizeResult is returned by Recognize. May be nil (returns nil, nil).
	RecognizeResult *speech.TranscriptionResult

	// RecognizeErr, if non-nil, is returned as the error from Recognize.
	RecognizeErr error

	// RecognizeCalls records every invocation of Recognize in order.
	RecognizeCalls []RecognizeCall
}

var _ speech.Provider = (*Provider)(nil)

// Recognize implements speech.Provider.
func (p *Provider) Recognize(ctx context.Context, req speech.Request) (*speech.TranscriptionResult, error) {
	p.mu.Lock()
	p.RecognizeCalls = append(p.RecognizeCalls, RecognizeCall{Ctx: ctx, Req: req})
	p.mu.Unlock()

	if p.RecognizeErr != nil {
		return nil, p.RecognizeErr
	}
	return p.RecognizeResult, nil
}
