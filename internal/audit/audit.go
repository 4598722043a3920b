// Package audit provides the append-only event trail wrapped around every
// pipeline stage transition.
//
// Events are compliance-critical: a stage that cannot be audited must not
// run. The [Recorder] therefore treats a sink failure as fatal and surfaces
// it as a [*SinkError] so the pipeline aborts the session instead of
// continuing unrecorded.
//
// Event details must never contain protected health information; callers
// record error kinds and counts, not content.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage transition actions.
const (
	ActionStart   = "start"
	ActionSuccess = "success"
	ActionFailure = "failure"
)

// Event is one immutable audit record. Once emitted it is never updated or
// deleted.
type Event struct {
	// ID uniquely identifies the event.
	ID uuid.UUID

	// SessionID names the dictation session the event belongs to.
	SessionID string

	// Stage is the pipeline stage the event describes.
	Stage string

	// Action is one of ActionStart, ActionSuccess, ActionFailure.
	Action string

	// Success is false only for ActionFailure events.
	Success bool

	// PHIAccessed is true when the stage handled unmasked identifying
	// information (the masking and unmasking operations). Consumed by
	// external compliance reporting.
	PHIAccessed bool

	// ErrorDetail carries the error kind for failure events. Never PHI.
	ErrorDetail string

	// Timestamp is when the event was recorded.
	Timestamp time.Time
}

// Sink receives emitted events. Implementations must be safe for concurrent
// use and must append atomically; a returned error means the event was not
// durably recorded.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// SinkError reports that the audit sink rejected an event. It is fatal for
// the session.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("audit: sink append failed: %v", e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// RecorderOption is a functional option for [NewRecorder].
type RecorderOption func(*Recorder)

// WithLogger sets the structured logger events are mirrored to. Default:
// slog.Default.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder emits audit events to a sink and mirrors them to the structured
// log. It is safe for concurrent use.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing to sink.
func NewRecorder(sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record emits one event. The returned error is always a *SinkError when
// non-nil, and the caller must abort the session on it.
func (r *Recorder) Record(ctx context.Context, sessionID, stage, action string, phiAccessed bool, errorDetail string) (Event, error) {
	e := Event{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Stage:       stage,
		Action:      action,
		Success:     action != ActionFailure,
		PHIAccessed: phiAccessed,
		ErrorDetail: errorDetail,
		Timestamp:   r.now().UTC(),
	}

	if err := r.sink.Append(ctx, e); err != nil {
		return Event{}, &SinkError{Err: err}
	}

	r.logger.LogAttrs(ctx, slog.LevelInfo, "audit event",
		slog.String("session_id", e.SessionID),
		slog.String("stage", e.Stage),
		slog.String("action", e.Action),
		slog.Bool("phi_accessed", e.PHIAccessed),
	)
	return e, nil
}

// MemorySink is an in-process Sink that keeps events in order. Useful in
// tests and as the default when no persistent sink is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*MemorySink)(nil)

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of every appended event in emission order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
