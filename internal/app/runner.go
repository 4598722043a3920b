package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/DandaAkhilReddy/audicia/internal/extract"
	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/internal/observe"
	"github.com/DandaAkhilReddy/audicia/internal/pipeline"
	"github.com/DandaAkhilReddy/audicia/internal/resilience"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
	"github.com/DandaAkhilReddy/audicia/pkg/store"
)

// defaultMaxConcurrent bounds parallel sessions when the config leaves
// max_concurrent_sessions unset.
const defaultMaxConcurrent = 4

// ErrSessionInFlight is returned when a session ID is submitted while an
// earlier submission for the same ID is still being processed.
var ErrSessionInFlight = errors.New("app: session already being processed")

// ErrNoSpeechProvider is returned when a submission carries raw audio but no
// speech provider is configured.
var ErrNoSpeechProvider = errors.New("app: no speech provider configured")

// Submission is one dictation recording handed to the application.
type Submission struct {
	// SessionID identifies the session. Empty generates a fresh ID.
	SessionID string

	// Audio is the raw recording, interpreted per Format. Ignored when
	// Transcription is set.
	Audio []byte

	// Format is the container/codec of Audio (e.g. "wav", "mp3").
	Format string

	// PatientContext optionally carries demographics forwarded to extraction.
	PatientContext *extract.PatientContext

	// Transcription, when set, skips the recognition step. Used when the
	// recording was transcribed out of band.
	Transcription *speech.TranscriptionResult
}

// RunnerConfig assembles a [Runner].
type RunnerConfig struct {
	Speech        speech.Provider
	Pipeline      *pipeline.Pipeline
	Records       store.RecordStore
	MaxConcurrent int
	Language      string
	SpeechRetry   resilience.RetryConfig
	Logger        *slog.Logger
	Metrics       *observe.Metrics
}

// Runner takes submissions through recognition, the processing pipeline, and
// persistence. It bounds how many sessions run in parallel and rejects a
// second submission for a session that is still in flight.
//
// Safe for concurrent use.
type Runner struct {
	speech   speech.Provider
	pipeline *pipeline.Pipeline
	records  store.RecordStore
	language string
	hints    []string
	retry    resilience.RetryConfig
	logger   *slog.Logger
	metrics  *observe.Metrics

	sem *semaphore.Weighted
	max int

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRunner creates a Runner. A non-positive MaxConcurrent falls back to a
// small default; a nil Logger falls back to slog.Default.
func NewRunner(cfg RunnerConfig) *Runner {
	max := cfg.MaxConcurrent
	if max <= 0 {
		max = defaultMaxConcurrent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Runner{
		speech:   cfg.Speech,
		pipeline: cfg.Pipeline,
		records:  cfg.Records,
		language: cfg.Language,
		hints:    normalize.PhraseHints(),
		retry:    cfg.SpeechRetry,
		logger:   logger,
		metrics:  metrics,
		sem:      semaphore.NewWeighted(int64(max)),
		max:      max,
		inFlight: make(map[string]struct{}),
	}
}

func (r *Runner) maxConcurrent() int { return r.max }

// drain blocks until every in-flight session has finished or ctx expires.
func (r *Runner) drain(ctx context.Context) error {
	if err := r.sem.Acquire(ctx, int64(r.max)); err != nil {
		return err
	}
	r.sem.Release(int64(r.max))
	return nil
}

// Process runs one submission to completion: transcribe (unless the
// submission is pre-transcribed), run the pipeline, and persist the record.
//
// Process blocks while the concurrency limit is saturated. A pipeline failure
// comes back as a [*pipeline.Failure]; the audit trail already records it.
func (r *Runner) Process(ctx context.Context, sub Submission) (*pipeline.Result, error) {
	if sub.SessionID == "" {
		sub.SessionID = uuid.NewString()
	}

	if err := r.claim(sub.SessionID); err != nil {
		return nil, err
	}
	defer r.release(sub.SessionID)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("app: acquire session slot: %w", err)
	}
	defer r.sem.Release(1)

	transcription := sub.Transcription
	if transcription == nil {
		var err error
		transcription, err = r.recognize(ctx, sub)
		if err != nil {
			return nil, err
		}
	}

	res, err := r.pipeline.Run(ctx, pipeline.Input{
		SessionID:      sub.SessionID,
		Transcription:  transcription,
		PatientContext: sub.PatientContext,
	})
	if err != nil {
		return nil, err
	}

	if err := r.records.SaveRecord(ctx, store.Record{
		SessionID:  res.SessionID,
		Document:   res.Document,
		MaskedText: res.MaskedText,
		Quality:    res.Scores.Quality,
		Accuracy:   res.Scores.Accuracy,
		Issues:     res.Issues,
	}); err != nil {
		return nil, fmt.Errorf("app: save record: %w", err)
	}

	return res, nil
}

// recognize transcribes the submission audio, retrying with backoff while the
// provider reports throttling. The request is biased towards the clinical
// vocabulary so the recogniser mangles fewer domain terms.
func (r *Runner) recognize(ctx context.Context, sub Submission) (*speech.TranscriptionResult, error) {
	if r.speech == nil {
		return nil, ErrNoSpeechProvider
	}

	var result *speech.TranscriptionResult
	err := resilience.Retry(ctx, r.retry, isSpeechRateLimited, func() error {
		res, err := r.speech.Recognize(ctx, speech.Request{
			Audio:       sub.Audio,
			Format:      sub.Format,
			Language:    r.language,
			PhraseHints: r.hints,
		})
		if err != nil {
			r.metrics.RecordProviderRequest(ctx, "speech", "recognize", "error")
			r.metrics.RecordProviderError(ctx, "speech", "recognize")
			return err
		}
		r.metrics.RecordProviderRequest(ctx, "speech", "recognize", "ok")
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("app: recognize: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("app: recognize: %w", speech.ErrUnintelligible)
	}

	if result.SessionID == "" {
		result.SessionID = sub.SessionID
	}
	return result, nil
}

// claim marks a session as in flight, rejecting duplicates.
func (r *Runner) claim(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[sessionID]; busy {
		return fmt.Errorf("%w: %s", ErrSessionInFlight, sessionID)
	}
	r.inFlight[sessionID] = struct{}{}
	return nil
}

func (r *Runner) release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, sessionID)
}

// isSpeechRateLimited reports whether a recognition error is provider
// throttling and therefore worth a backed-off retry.
func isSpeechRateLimited(err error) bool {
	return errors.Is(err, speech.ErrRateLimited)
}
