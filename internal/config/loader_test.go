package config_test

import (
	"strings"
	"testing"

	"github.com/DandaAkhilReddy/audicia/internal/config"
)

const validYAML = `
server:
  log_level: info
  metrics_addr: ":9090"
providers:
  speech:
    name: openai
    model: whisper-1
  genai:
    name: openai
    model: gpt-4o
pipeline:
  temperature: 0.1
  max_tokens: 3000
  max_concurrent_sessions: 4
  language: en-US
storage:
  postgres_dsn: "postgres://localhost/audicia"
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.GenAI.Name != "openai" {
		t.Errorf("genai name: got %q, want %q", cfg.Providers.GenAI.Name, "openai")
	}
	if cfg.Providers.Speech.Model != "whisper-1" {
		t.Errorf("speech model: got %q, want %q", cfg.Providers.Speech.Model, "whisper-1")
	}
	if cfg.Pipeline.Temperature != 0.1 {
		t.Errorf("temperature: got %v, want 0.1", cfg.Pipeline.Temperature)
	}
	if cfg.Pipeline.MaxConcurrentSessions != 4 {
		t.Errorf("max_concurrent_sessions: got %d, want 4", cfg.Pipeline.MaxConcurrentSessions)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
extra_section:
  foo: bar
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_GenAIRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  speech:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing genai provider, got nil")
	}
	if !strings.Contains(err.Error(), "providers.genai.name") {
		t.Errorf("error should mention providers.genai.name, got: %v", err)
	}
}

func TestValidate_TemperatureRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		temp    string
		wantErr bool
	}{
		{"0", false},
		{"0.1", false},
		{"0.3", false},
		{"0.31", true},
		{"1.0", true},
		{"-0.1", true},
	}
	for _, tt := range tests {
		yaml := `
providers:
  genai:
    name: openai
pipeline:
  temperature: ` + tt.temp + `
`
		_, err := config.LoadFromReader(strings.NewReader(yaml))
		if (err != nil) != tt.wantErr {
			t.Errorf("temperature %s: err = %v, wantErr = %v", tt.temp, err, tt.wantErr)
		}
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
providers:
  genai:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_CorrectionRequiresFrom(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  genai:
    name: openai
pipeline:
  corrections:
    - from: "high per tension"
      to: "hypertension"
    - to: "lisinopril"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for correction without from, got nil")
	}
	if !strings.Contains(err.Error(), "corrections[1].from") {
		t.Errorf("error should name the offending entry, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
pipeline:
  temperature: 0.9
  max_tokens: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "temperature", "max_tokens", "providers.genai.name"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_FallbackNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  genai:
    name: openai
  genai_fallbacks:
    - name: anthropic
    - model: some-model
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback without name, got nil")
	}
	if !strings.Contains(err.Error(), "genai_fallbacks[1]") {
		t.Errorf("error should name the offending entry, got: %v", err)
	}
}

func TestValidate_SpeechFallbacksRequirePrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  genai:
    name: openai
  speech_fallbacks:
    - name: openai
      model: whisper-1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for speech fallbacks without a primary, got nil")
	}
	if !strings.Contains(err.Error(), "speech_fallbacks") {
		t.Errorf("error should mention speech_fallbacks, got: %v", err)
	}
}

func TestValidate_SpeechFallbackNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  speech:
    name: openai
  genai:
    name: openai
  speech_fallbacks:
    - model: whisper-1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for speech fallback without name, got nil")
	}
	if !strings.Contains(err.Error(), "speech_fallbacks[0]") {
		t.Errorf("error should name the offending entry, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	genaiNames := config.ValidProviderNames["genai"]
	if len(genaiNames) == 0 {
		t.Fatal("ValidProviderNames[\"genai\"] should not be empty")
	}
	found := false
	for _, n := range genaiNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"genai\"] should contain \"openai\"")
	}
}
