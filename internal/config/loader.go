package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"speech": {"openai"},
	"genai":  {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("speech", cfg.Providers.Speech.Name)
	validateProviderName("genai", cfg.Providers.GenAI.Name)
	for _, entry := range cfg.Providers.SpeechFallbacks {
		validateProviderName("speech", entry.Name)
	}
	for _, entry := range cfg.Providers.GenAIFallbacks {
		validateProviderName("genai", entry.Name)
	}

	if cfg.Providers.GenAI.Name == "" {
		errs = append(errs, errors.New("providers.genai.name is required; extraction cannot run without a generative provider"))
	}
	if cfg.Providers.Speech.Name == "" {
		slog.Warn("providers.speech is not configured; only pre-transcribed submissions can be processed")
	}
	if len(cfg.Providers.SpeechFallbacks) > 0 && cfg.Providers.Speech.Name == "" {
		errs = append(errs, errors.New("providers.speech_fallbacks require a primary providers.speech"))
	}
	for i, entry := range cfg.Providers.SpeechFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.speech_fallbacks[%d].name is required", i))
		}
	}
	for i, entry := range cfg.Providers.GenAIFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.genai_fallbacks[%d].name is required", i))
		}
	}

	// Pipeline
	p := cfg.Pipeline
	if p.Temperature < 0 || p.Temperature > maxExtractionTemperature {
		errs = append(errs, fmt.Errorf("pipeline.temperature %.2f is out of range [0, %.1f]; extraction must stay near-deterministic", p.Temperature, maxExtractionTemperature))
	}
	if p.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_tokens %d must not be negative", p.MaxTokens))
	}
	if p.MaxConcurrentSessions < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_concurrent_sessions %d must not be negative", p.MaxConcurrentSessions))
	}
	for i, c := range p.Corrections {
		if c.From == "" {
			errs = append(errs, fmt.Errorf("pipeline.corrections[%d].from is required", i))
		}
	}
	if p.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("pipeline.retry.max_attempts %d must not be negative", p.Retry.MaxAttempts))
	}
	if p.Retry.BaseDelay < 0 || p.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("pipeline.retry delays must not be negative"))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; records and audit events will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
