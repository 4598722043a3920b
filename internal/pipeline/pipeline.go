// Package pipeline orchestrates one dictation session end to end: normalize
// the transcript, mask identifying spans, extract the structured record,
// restore the masked spans, validate clinical content, and score the result.
//
// Every stage transition is audited before and after the work runs. A stage
// failure moves the session to Failed and surfaces a [*Failure] naming the
// stage and the error kind; the pipeline never returns a partially unmasked
// or partially validated document. The per-session [phi.MaskingContext] is
// destroyed on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DandaAkhilReddy/audicia/internal/audit"
	"github.com/DandaAkhilReddy/audicia/internal/extract"
	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/internal/observe"
	"github.com/DandaAkhilReddy/audicia/internal/phi"
	"github.com/DandaAkhilReddy/audicia/internal/resilience"
	"github.com/DandaAkhilReddy/audicia/internal/scoring"
	"github.com/DandaAkhilReddy/audicia/internal/soap"
	"github.com/DandaAkhilReddy/audicia/internal/validate"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// Error kinds carried in failure audit events and [Failure.Kind]. Kinds are
// stable strings consumed by compliance reporting; they never contain
// identifying content.
const (
	ErrKindTranscription = "transcription-failure"
	ErrKindMasking       = "masking-failure"
	ErrKindParse         = "extraction-parse-failure"
	ErrKindRateLimited   = "provider-rate-limited"
	ErrKindAudit         = "audit-write-failure"
	ErrKindCancelled     = "cancelled"
	ErrKindInternal      = "internal"
)

// Input is one submitted dictation session.
type Input struct {
	// SessionID identifies the session across audit events and storage.
	SessionID string

	// Transcription is the raw recognizer output for the session.
	Transcription *speech.TranscriptionResult

	// PatientContext optionally carries demographics and history forwarded to
	// the extraction stage. May be nil.
	PatientContext *extract.PatientContext
}

// Result is the complete output of a successfully processed session.
type Result struct {
	SessionID string

	// Normalized is the corrected transcript with its substitution log and
	// aggregated confidence.
	Normalized normalize.NormalizedText

	// MaskedText is the de-identified text that was sent to the generative
	// provider. Safe to persist.
	MaskedText string

	// Document is the final structured record, unmasked and validated.
	Document *soap.Document

	// Issues lists every validator finding, including warnings on fields that
	// were annotated rather than removed.
	Issues []validate.Issue

	// Scores holds the quality and accuracy estimates for the session.
	Scores scoring.Scores

	// TokenUsage sums the generative tokens consumed across every extraction
	// attempt of the session.
	TokenUsage genai.Usage

	// Events is the ordered audit trail emitted during the run.
	Events []audit.Event
}

// Failure reports the stage at which a session run stopped and the
// classified error kind.
type Failure struct {
	Stage Stage
	Kind  string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline: %s failed (%s): %v", f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Option is a functional option for [New].
type Option func(*Pipeline)

// WithLogger sets the structured logger. Default: slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRetryConfig tunes the backoff applied to rate-limited extraction calls.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) {
		p.retry = cfg
	}
}

// Pipeline runs dictation sessions through the full processing sequence.
// It is safe for concurrent use; all per-session state lives in the Run call.
type Pipeline struct {
	normalizer *normalize.Normalizer
	masker     *phi.Masker
	extractor  *extract.Extractor
	recorder   *audit.Recorder

	logger  *slog.Logger
	metrics *observe.Metrics
	retry   resilience.RetryConfig
}

// New assembles a Pipeline from its stage components.
func New(n *normalize.Normalizer, m *phi.Masker, e *extract.Extractor, r *audit.Recorder, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: n,
		masker:     m,
		extractor:  e,
		recorder:   r,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Run processes one session to completion. On success the returned Result
// carries the document, scores, issues, and the full audit trail. On failure
// the error is a [*Failure] (or the audit [*audit.SinkError] wrapped in one)
// and no partial Result is returned.
//
// Cancellation is honored between stages: an in-flight provider call finishes
// or aborts per its own context handling, but no new stage starts after ctx
// is done.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	res := &Result{SessionID: in.SessionID}

	p.metrics.ActiveSessions.Add(ctx, 1)
	defer p.metrics.ActiveSessions.Add(ctx, -1)
	runStart := time.Now()

	// The masking context is the only place originals survive; destroy it on
	// every exit path.
	var mc *phi.MaskingContext
	defer func() { mc.Destroy() }()

	// Submitted is the entry state; it does work of its own only once, so it
	// gets a single start event rather than a start/outcome pair.
	ev, err := p.recorder.Record(ctx, in.SessionID, StageSubmitted.String(), audit.ActionStart, false, "")
	if err != nil {
		return nil, p.auditFailure(ctx, res, StageSubmitted, err)
	}
	res.Events = append(res.Events, ev)

	err = p.runStage(ctx, res, StageNormalizing, false, func(ctx context.Context) error {
		res.Normalized = p.normalizer.Normalize(in.Transcription)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.runStage(ctx, res, StageMasking, true, func(ctx context.Context) error {
		masked, maskCtx, maskErr := p.masker.Mask(res.Normalized.Text)
		if maskErr != nil {
			return maskErr
		}
		res.MaskedText = masked
		mc = maskCtx
		for kind, n := range mc.KindCounts() {
			p.metrics.RecordMaskedEntities(ctx, string(kind), int64(n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.runStage(ctx, res, StageExtracting, false, func(ctx context.Context) error {
		return resilience.Retry(ctx, p.retry, isRateLimited, func() error {
			doc, usage, extractErr := p.extractor.Extract(ctx, res.MaskedText, in.PatientContext)
			res.TokenUsage.PromptTokens += usage.PromptTokens
			res.TokenUsage.CompletionTokens += usage.CompletionTokens
			res.TokenUsage.TotalTokens += usage.TotalTokens
			if extractErr != nil {
				p.metrics.RecordProviderRequest(ctx, "genai", "complete", "error")
				p.metrics.RecordProviderError(ctx, "genai", errKind(extractErr))
				return extractErr
			}
			p.metrics.RecordProviderRequest(ctx, "genai", "complete", "ok")
			res.Document = doc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordTokenUsage(ctx,
		int64(res.TokenUsage.PromptTokens),
		int64(res.TokenUsage.CompletionTokens),
	)

	err = p.runStage(ctx, res, StageUnmasking, true, func(ctx context.Context) error {
		p.masker.UnmaskDocument(res.Document, mc)
		if n := mc.DroppedCount(); n > 0 {
			p.logger.LogAttrs(ctx, slog.LevelDebug, "mask tokens not echoed by extraction",
				slog.String("session_id", res.SessionID),
				slog.Int("dropped", n),
			)
		}
		mc.Destroy()
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.runStage(ctx, res, StageValidating, false, func(ctx context.Context) error {
		res.Issues = validate.Validate(res.Document)
		for _, issue := range res.Issues {
			p.metrics.RecordValidationIssue(ctx, string(issue.Kind), string(issue.Severity))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.runStage(ctx, res, StageScoring, false, func(ctx context.Context) error {
		res.Scores = scoring.Score(res.Normalized, res.Document, res.Issues)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev, err = p.recorder.Record(ctx, in.SessionID, StageCompleted.String(), audit.ActionSuccess, false, "")
	if err != nil {
		return nil, p.auditFailure(ctx, res, StageCompleted, err)
	}
	res.Events = append(res.Events, ev)

	p.metrics.RecordSessionOutcome(ctx, "completed")
	p.metrics.PipelineDuration.Record(ctx, time.Since(runStart).Seconds())
	p.logger.LogAttrs(ctx, slog.LevelInfo, "session completed",
		slog.String("session_id", in.SessionID),
		slog.Float64("quality", res.Scores.Quality),
		slog.Float64("accuracy", res.Scores.Accuracy),
		slog.Int("issues", len(res.Issues)),
		slog.Int("total_tokens", res.TokenUsage.TotalTokens),
	)
	return res, nil
}

// runStage wraps one working stage with its start/outcome audit events, the
// cancellation check, and the duration metric. phiAccessed is carried on
// every event of stages that handle unmasked identifiers.
func (p *Pipeline) runStage(ctx context.Context, res *Result, stage Stage, phiAccessed bool, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, res, stage, phiAccessed, err)
	}

	ev, err := p.recorder.Record(ctx, res.SessionID, stage.String(), audit.ActionStart, phiAccessed, "")
	if err != nil {
		return p.auditFailure(ctx, res, stage, err)
	}
	res.Events = append(res.Events, ev)

	begin := time.Now()
	stageErr := fn(ctx)
	p.metrics.RecordStage(ctx, stage.String(), time.Since(begin).Seconds())

	if stageErr != nil {
		return p.fail(ctx, res, stage, phiAccessed, stageErr)
	}

	ev, err = p.recorder.Record(ctx, res.SessionID, stage.String(), audit.ActionSuccess, phiAccessed, "")
	if err != nil {
		return p.auditFailure(ctx, res, stage, err)
	}
	res.Events = append(res.Events, ev)
	return nil
}

// fail records the failure event for the stage, counts the session as failed,
// and wraps the cause in a *Failure. The event detail carries only the error
// kind, never error text that could embed identifying content.
func (p *Pipeline) fail(ctx context.Context, res *Result, stage Stage, phiAccessed bool, cause error) error {
	kind := errKind(cause)

	if _, err := p.recorder.Record(ctx, res.SessionID, stage.String(), audit.ActionFailure, phiAccessed, kind); err != nil {
		// The sink failure takes over: an unrecorded session must not be
		// reported as merely stage-failed.
		p.logger.LogAttrs(ctx, slog.LevelError, "stage failed and audit sink rejected the failure event",
			slog.String("session_id", res.SessionID),
			slog.String("stage", stage.String()),
			slog.String("kind", kind),
		)
		return p.auditFailure(ctx, res, stage, err)
	}

	p.metrics.RecordSessionOutcome(ctx, "failed")
	p.logger.LogAttrs(ctx, slog.LevelError, "session failed",
		slog.String("session_id", res.SessionID),
		slog.String("stage", stage.String()),
		slog.String("kind", kind),
	)
	return &Failure{Stage: stage, Kind: kind, Err: cause}
}

// auditFailure handles a sink rejection: the session aborts with the audit
// error itself, since nothing past this point can be recorded.
func (p *Pipeline) auditFailure(ctx context.Context, res *Result, stage Stage, err error) error {
	p.metrics.RecordSessionOutcome(ctx, "failed")
	return &Failure{Stage: stage, Kind: ErrKindAudit, Err: err}
}

// errKind classifies an error into the stable kind string used in audit
// events and metrics.
func errKind(err error) string {
	var maskErr *phi.MaskingError
	var parseErr *extract.ParseError
	var sinkErr *audit.SinkError

	switch {
	case errors.As(err, &sinkErr):
		return ErrKindAudit
	case errors.As(err, &maskErr):
		return ErrKindMasking
	case errors.As(err, &parseErr):
		return ErrKindParse
	case errors.Is(err, genai.ErrRateLimited), errors.Is(err, speech.ErrRateLimited):
		return ErrKindRateLimited
	case errors.Is(err, speech.ErrUnintelligible):
		return ErrKindTranscription
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrKindCancelled
	default:
		return ErrKindInternal
	}
}

// isRateLimited reports whether the extraction error is provider throttling
// and therefore worth a backed-off retry.
func isRateLimited(err error) bool {
	return errors.Is(err, genai.ErrRateLimited)
}
