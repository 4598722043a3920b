package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// storage changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CorrectionsChanged is true when the transcript correction dictionary
	// differs. Normalizers can be rebuilt mid-flight; in-progress sessions
	// keep the dictionary they started with.
	CorrectionsChanged bool

	// ExtractionChanged is true when temperature or max_tokens differ.
	ExtractionChanged bool

	// ConcurrencyChanged is true when max_concurrent_sessions differs. Takes
	// effect for newly admitted sessions only.
	ConcurrencyChanged bool
}

// Changed reports whether the diff contains any hot-reloadable change.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CorrectionsChanged || d.ExtractionChanged || d.ConcurrencyChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Pipeline.Corrections, new.Pipeline.Corrections) {
		d.CorrectionsChanged = true
	}

	if old.Pipeline.Temperature != new.Pipeline.Temperature ||
		old.Pipeline.MaxTokens != new.Pipeline.MaxTokens {
		d.ExtractionChanged = true
	}

	if old.Pipeline.MaxConcurrentSessions != new.Pipeline.MaxConcurrentSessions {
		d.ConcurrencyChanged = true
	}

	return d
}
