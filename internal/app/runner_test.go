package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DandaAkhilReddy/audicia/internal/app"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	genaimock "github.com/DandaAkhilReddy/audicia/pkg/provider/genai/mock"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// blockingSpeech parks Recognize until released, so tests can observe a
// session while it is still in flight.
type blockingSpeech struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSpeech) Recognize(ctx context.Context, _ speech.Request) (*speech.TranscriptionResult, error) {
	close(b.entered)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return transcription("", "Patient complains of chest pain."), nil
}

func TestProcess_RejectsDuplicateInFlightSession(t *testing.T) {
	t.Parallel()

	sp := &blockingSpeech{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, sp, gp)

	firstDone := make(chan error, 1)
	go func() {
		_, err := a.Process(context.Background(), app.Submission{
			SessionID: "sess-dup",
			Audio:     []byte("fake-wav"),
			Format:    "wav",
		})
		firstDone <- err
	}()

	select {
	case <-sp.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never reached the speech provider")
	}

	_, err := a.Process(context.Background(), app.Submission{
		SessionID: "sess-dup",
		Audio:     []byte("fake-wav"),
		Format:    "wav",
	})
	if !errors.Is(err, app.ErrSessionInFlight) {
		t.Errorf("duplicate error = %v, want ErrSessionInFlight", err)
	}

	close(sp.release)
	if err := <-firstDone; err != nil {
		t.Errorf("first submission: %v", err)
	}
}

func TestProcess_SameSessionSequentiallyAllowed(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, records, _ := newTestApp(t, nil, gp)

	sub := app.Submission{
		SessionID:     "sess-seq",
		Transcription: transcription("sess-seq", "Patient complains of chest pain."),
	}
	if _, err := a.Process(context.Background(), sub); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if _, err := a.Process(context.Background(), sub); err != nil {
		t.Fatalf("reprocess: %v", err)
	}

	all, err := records.ListRecords(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("records = %d, want 1 after reprocessing upsert", len(all))
	}
}

func TestShutdown_DrainsInFlightSessions(t *testing.T) {
	t.Parallel()

	sp := &blockingSpeech{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, records, _ := newTestApp(t, sp, gp)

	procDone := make(chan error, 1)
	go func() {
		_, err := a.Process(context.Background(), app.Submission{
			SessionID: "sess-drain",
			Audio:     []byte("fake-wav"),
			Format:    "wav",
		})
		procDone <- err
	}()

	select {
	case <-sp.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("submission never reached the speech provider")
	}

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- a.Shutdown(context.Background())
	}()

	select {
	case err := <-shutdownDone:
		t.Fatalf("Shutdown returned while a session was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(sp.release)
	if err := <-procDone; err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := records.GetRecord(context.Background(), "sess-drain"); err != nil {
		t.Errorf("record not persisted before shutdown completed: %v", err)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, nil, gp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Process(ctx, app.Submission{
		SessionID:     "sess-cancel",
		Transcription: transcription("sess-cancel", "Patient complains of chest pain."),
	})
	if err == nil {
		t.Fatal("Process should fail with a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}
