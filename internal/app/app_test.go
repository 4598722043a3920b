package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DandaAkhilReddy/audicia/internal/app"
	"github.com/DandaAkhilReddy/audicia/internal/audit"
	"github.com/DandaAkhilReddy/audicia/internal/config"
	"github.com/DandaAkhilReddy/audicia/internal/pipeline"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	genaimock "github.com/DandaAkhilReddy/audicia/pkg/provider/genai/mock"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
	speechmock "github.com/DandaAkhilReddy/audicia/pkg/provider/speech/mock"
	"github.com/DandaAkhilReddy/audicia/pkg/store"
)

const chestPainReply = `{
  "subjective": {
    "chief_complaint": "Chest pain",
    "history_present_illness": "Patient complains of chest pain."
  },
  "objective": {
    "vital_signs": {
      "blood_pressure": "140/90"
    }
  },
  "assessment": {
    "primary_diagnosis": "Hypertension",
    "icd10_codes": ["I10"]
  },
  "plan": {
    "medications": ["Lisinopril 10 mg daily"]
  }
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			Speech: config.ProviderEntry{Name: "openai"},
			GenAI:  config.ProviderEntry{Name: "openai"},
		},
		Pipeline: config.PipelineConfig{
			Language: "en-US",
			Corrections: []config.CorrectionConfig{
				{From: "metro formin", To: "metformin"},
			},
			Retry: config.RetryConfig{
				MaxAttempts: 2,
				BaseDelay:   time.Millisecond,
				MaxDelay:    time.Millisecond,
			},
		},
	}
}

// newTestApp wires an App with in-memory storage and the given providers.
func newTestApp(t *testing.T, sp speech.Provider, gp genai.Provider) (*app.App, *store.MemoryStore, *audit.MemorySink) {
	t.Helper()
	records := store.NewMemoryStore()
	sink := &audit.MemorySink{}

	a, err := app.New(context.Background(), testConfig(),
		&app.Providers{Speech: sp, GenAI: gp},
		app.WithRecordStore(records),
		app.WithAuditSink(sink),
		app.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, records, sink
}

func transcription(sessionID, text string) *speech.TranscriptionResult {
	return &speech.TranscriptionResult{
		SessionID: sessionID,
		Text:      text,
		Utterances: []speech.Utterance{
			{Text: text, Confidence: 0.9},
		},
	}
}

func TestNew_RequiresGenAIProvider(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), testConfig(), &app.Providers{})
	if err == nil {
		t.Fatal("New should fail without a generative provider")
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	t.Parallel()

	sp := &speechmock.Provider{
		RecognizeResult: transcription("",
			"Patient complains of chest pain. Blood pressure 140 over 90."),
	}
	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, records, sink := newTestApp(t, sp, gp)

	res, err := a.Process(context.Background(), app.Submission{
		SessionID: "sess-1",
		Audio:     []byte("fake-wav"),
		Format:    "wav",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Document.Subjective.ChiefComplaint != "Chest pain" {
		t.Errorf("chief complaint = %q", res.Document.Subjective.ChiefComplaint)
	}

	if len(sp.RecognizeCalls) != 1 {
		t.Fatalf("recognize calls = %d, want 1", len(sp.RecognizeCalls))
	}
	req := sp.RecognizeCalls[0].Req
	if req.Language != "en-US" {
		t.Errorf("language = %q, want en-US from config", req.Language)
	}
	if len(req.PhraseHints) == 0 {
		t.Error("request should bias the recogniser with clinical phrase hints")
	}

	rec, err := records.GetRecord(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.Document.Subjective.ChiefComplaint != "Chest pain" {
		t.Errorf("stored chief complaint = %q", rec.Document.Subjective.ChiefComplaint)
	}
	if rec.Quality != res.Scores.Quality {
		t.Errorf("stored quality = %v, want %v", rec.Quality, res.Scores.Quality)
	}

	events := sink.Events()
	if len(events) == 0 {
		t.Fatal("no audit events recorded")
	}
	last := events[len(events)-1]
	if last.Stage != "Completed" || last.Action != audit.ActionSuccess {
		t.Errorf("last event = %s/%s, want Completed/success", last.Stage, last.Action)
	}
}

func TestProcess_PreTranscribedSkipsRecognition(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, records, _ := newTestApp(t, nil, gp)

	res, err := a.Process(context.Background(), app.Submission{
		Transcription: transcription("", "Patient complains of chest pain."),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.SessionID == "" {
		t.Error("session ID should be generated when the submission has none")
	}

	if _, err := records.GetRecord(context.Background(), res.SessionID); err != nil {
		t.Errorf("GetRecord(%s): %v", res.SessionID, err)
	}
}

func TestProcess_AudioWithoutSpeechProvider(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, nil, gp)

	_, err := a.Process(context.Background(), app.Submission{
		SessionID: "sess-1",
		Audio:     []byte("fake-wav"),
		Format:    "wav",
	})
	if !errors.Is(err, app.ErrNoSpeechProvider) {
		t.Errorf("error = %v, want ErrNoSpeechProvider", err)
	}
}

func TestProcess_SpeechRateLimitedRetriesThenFails(t *testing.T) {
	t.Parallel()

	sp := &speechmock.Provider{RecognizeErr: speech.ErrRateLimited}
	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, sp, gp)

	_, err := a.Process(context.Background(), app.Submission{
		SessionID: "sess-1",
		Audio:     []byte("fake-wav"),
		Format:    "wav",
	})
	if !errors.Is(err, speech.ErrRateLimited) {
		t.Fatalf("error = %v, want wrapped ErrRateLimited", err)
	}
	if got := len(sp.RecognizeCalls); got != 2 {
		t.Errorf("recognize calls = %d, want 2 (configured max attempts)", got)
	}
	if len(gp.CompleteCalls) != 0 {
		t.Error("extraction should not run when transcription fails")
	}
}

func TestProcess_PipelineFailureIsNotPersisted(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{CompleteErr: genai.ErrRateLimited}
	a, records, _ := newTestApp(t, nil, gp)

	_, err := a.Process(context.Background(), app.Submission{
		SessionID:     "sess-1",
		Transcription: transcription("sess-1", "Patient complains of chest pain."),
	})

	var failure *pipeline.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *pipeline.Failure", err)
	}
	if failure.Kind != pipeline.ErrKindRateLimited {
		t.Errorf("kind = %q, want %q", failure.Kind, pipeline.ErrKindRateLimited)
	}

	if _, err := records.GetRecord(context.Background(), "sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed session should not be persisted, got %v", err)
	}
}

func TestProcess_AppliesConfiguredCorrections(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, nil, gp)

	res, err := a.Process(context.Background(), app.Submission{
		SessionID:     "sess-1",
		Transcription: transcription("sess-1", "Continue metro formin 500 mg twice daily."),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(res.Normalized.Text, "metformin") {
		t.Errorf("normalized = %q, want configured correction applied", res.Normalized.Text)
	}
}

func TestReload_AppliesNewCorrections(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, nil, gp)

	cfg := testConfig()
	cfg.Pipeline.Corrections = []config.CorrectionConfig{
		{From: "lose are tan", To: "losartan"},
	}
	a.Reload(cfg)

	res, err := a.Process(context.Background(), app.Submission{
		SessionID:     "sess-reload",
		Transcription: transcription("sess-reload", "Switch to lose are tan 50 mg daily."),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(res.Normalized.Text, "losartan") {
		t.Errorf("normalized = %q, want reloaded correction applied", res.Normalized.Text)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	gp := &genaimock.Provider{
		CompleteResponse: &genai.CompletionResponse{Content: chestPainReply},
	}
	a, _, _ := newTestApp(t, nil, gp)

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
