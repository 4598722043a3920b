// Package speech defines the Provider interface for speech-recognition backends.
//
// A speech provider wraps a remote transcription service (e.g., the OpenAI
// audio API or an Azure Speech deployment) and exposes a uniform batch
// interface: one dictation recording in, one [TranscriptionResult] out. The
// pipeline never talks to a recognition SDK directly — it depends on this
// interface so that tests can run against the mock subpackage without network
// access.
//
// Implementations must be safe for concurrent use. Multiple dictation
// sessions may be transcribed simultaneously, bounded by the caller's worker
// pool.
package speech

import (
	"context"
	"errors"
	"time"
)

// ErrUnintelligible is returned when the provider could not recognise any
// speech in the supplied audio. It is non-fatal to the overall system; the
// caller surfaces it to the operator after its bounded retries are exhausted.
var ErrUnintelligible = errors.New("speech: no speech recognised in audio")

// ErrRateLimited is returned (possibly wrapped) when the provider throttles
// the request. Callers should retry with bounded exponential backoff.
var ErrRateLimited = errors.New("speech: provider rate limited")

// Request describes one dictation recording to transcribe.
type Request struct {
	// Audio is the raw recording. The pipeline treats it as opaque bytes;
	// Format tells the provider how to interpret them.
	Audio []byte

	// Format is the container/codec of Audio (e.g., "wav", "mp3", "m4a").
	Format string

	// Language is the BCP-47 language hint for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string

	// PhraseHints is a list of domain vocabulary the recogniser should be
	// biased towards — drug names, anatomical terms, clinical abbreviations.
	// Providers that have no bias mechanism may ignore it.
	PhraseHints []string
}

// Utterance is one recognised span of speech with its confidence.
type Utterance struct {
	// Text is the recognised content of this utterance.
	Text string

	// Confidence is the provider's confidence in Text (0.0–1.0). Zero when
	// the provider does not report per-utterance confidence.
	Confidence float64
}

// TranscriptionResult is the complete output of one recognition call.
// It is immutable once created; downstream stages copy what they need.
type TranscriptionResult struct {
	// SessionID identifies the dictation session this result belongs to.
	SessionID string

	// Text is the full transcribed dictation.
	Text string

	// Utterances holds the per-utterance breakdown with confidence values.
	// May be empty when the provider returns only whole-recording text.
	Utterances []Utterance

	// Duration is the length of the recognised recording. Zero when the
	// provider does not report it.
	Duration time.Duration
}

// Provider is the abstraction over any speech-recognition backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly: when ctx is cancelled the method must return as
// quickly as the underlying transport allows.
type Provider interface {
	// Recognize transcribes one complete dictation recording. It blocks until
	// the provider has committed to a result or ctx is cancelled.
	//
	// Returns ErrUnintelligible (possibly wrapped) when no speech was found,
	// and ErrRateLimited (possibly wrapped) when throttled.
	Recognize(ctx context.Context, req Request) (*TranscriptionResult, error)
}
