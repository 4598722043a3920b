package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DandaAkhilReddy/audicia/internal/audit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordAppendsToSink(t *testing.T) {
	t.Parallel()

	sink := &audit.MemorySink{}
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	r := audit.NewRecorder(sink,
		audit.WithLogger(discardLogger()),
		audit.WithClock(func() time.Time { return fixed }),
	)

	e, err := r.Record(context.Background(), "sess-1", "Masking", audit.ActionStart, true, "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if e.SessionID != "sess-1" || e.Stage != "Masking" || e.Action != audit.ActionStart {
		t.Errorf("event = %+v", e)
	}
	if !e.Success {
		t.Error("start event marked unsuccessful")
	}
	if !e.PHIAccessed {
		t.Error("PHIAccessed not carried through")
	}
	if !e.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, fixed)
	}

	events := sink.Events()
	if len(events) != 1 || events[0].ID != e.ID {
		t.Errorf("sink events = %v", events)
	}
}

func TestRecordFailureAction(t *testing.T) {
	t.Parallel()

	r := audit.NewRecorder(&audit.MemorySink{}, audit.WithLogger(discardLogger()))

	e, err := r.Record(context.Background(), "sess-1", "Extracting", audit.ActionFailure, false, "parse error")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.Success {
		t.Error("failure event marked successful")
	}
	if e.ErrorDetail != "parse error" {
		t.Errorf("ErrorDetail = %q", e.ErrorDetail)
	}
}

func TestRecordEventIDsAreUnique(t *testing.T) {
	t.Parallel()

	sink := &audit.MemorySink{}
	r := audit.NewRecorder(sink, audit.WithLogger(discardLogger()))

	for i := 0; i < 10; i++ {
		if _, err := r.Record(context.Background(), "sess-1", "Scoring", audit.ActionStart, false, ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	seen := map[string]bool{}
	for _, e := range sink.Events() {
		id := e.ID.String()
		if seen[id] {
			t.Fatalf("duplicate event ID %s", id)
		}
		seen[id] = true
	}
}

type failingSink struct{ err error }

func (s *failingSink) Append(context.Context, audit.Event) error { return s.err }

func TestRecordSinkFailureIsFatal(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	r := audit.NewRecorder(&failingSink{err: cause}, audit.WithLogger(discardLogger()))

	_, err := r.Record(context.Background(), "sess-1", "Validating", audit.ActionStart, false, "")

	var serr *audit.SinkError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *SinkError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("SinkError does not wrap the sink cause")
	}
}

func TestMemorySinkEventsReturnsCopy(t *testing.T) {
	t.Parallel()

	sink := &audit.MemorySink{}
	r := audit.NewRecorder(sink, audit.WithLogger(discardLogger()))
	if _, err := r.Record(context.Background(), "sess-1", "Normalizing", audit.ActionStart, false, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events := sink.Events()
	events[0].SessionID = "tampered"

	if sink.Events()[0].SessionID != "sess-1" {
		t.Error("Events exposed internal slice")
	}
}
