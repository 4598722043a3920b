package config_test

import (
	"testing"

	"github.com/DandaAkhilReddy/audicia/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			GenAI: config.ProviderEntry{Name: "openai", Model: "gpt-4o"},
		},
		Pipeline: config.PipelineConfig{
			Temperature:           0.1,
			MaxTokens:             3000,
			MaxConcurrentSessions: 4,
			Corrections: []config.CorrectionConfig{
				{From: "high per tension", To: "hypertension"},
			},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()

	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("identical configs should produce empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
}

func TestDiff_Corrections(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Pipeline.Corrections = append(new.Pipeline.Corrections,
		config.CorrectionConfig{From: "lie sin oh pril", To: "lisinopril"})

	d := config.Diff(old, new)
	if !d.CorrectionsChanged {
		t.Error("CorrectionsChanged should be true")
	}
	if d.ExtractionChanged || d.ConcurrencyChanged {
		t.Errorf("unrelated flags set: %+v", d)
	}
}

func TestDiff_Extraction(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Pipeline.Temperature = 0.2

	d := config.Diff(old, new)
	if !d.ExtractionChanged {
		t.Error("ExtractionChanged should be true for temperature change")
	}

	new = baseConfig()
	new.Pipeline.MaxTokens = 2000
	if d := config.Diff(old, new); !d.ExtractionChanged {
		t.Error("ExtractionChanged should be true for max_tokens change")
	}
}

func TestDiff_Concurrency(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Pipeline.MaxConcurrentSessions = 16

	d := config.Diff(old, new)
	if !d.ConcurrencyChanged {
		t.Error("ConcurrencyChanged should be true")
	}
	if !d.Changed() {
		t.Error("Changed() should report true")
	}
}
