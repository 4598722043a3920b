package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] either
// failed or was skipped because its circuit breaker is open.
var ErrAllFailed = errors.New("resilience: all providers failed")

// FallbackConfig configures a [FallbackGroup] and the per-backend circuit
// breakers it creates.
type FallbackConfig struct {
	// CircuitBreaker is the template applied to every backend's breaker. The
	// Name field is overwritten with the backend's registered name.
	CircuitBreaker CircuitBreakerConfig

	// Logger receives failover decisions. Default: slog.Default.
	Logger *slog.Logger
}

// fallbackEntry pairs one backend with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	backend T
	breaker *CircuitBreaker
}

// FallbackGroup orders a primary backend and its fallbacks for one provider
// kind, recognition or generative. A call walks the group until a healthy
// backend answers; backends with an open breaker are skipped without being
// called, so a flapping primary cannot stall every dictation session behind
// its timeout.
//
// Assemble the group fully before use: AddFallback must not race
// [ExecuteWithResult]. Execution itself is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
	logger  *slog.Logger
}

// NewFallbackGroup creates a group with primary as its first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fg := &FallbackGroup[T]{cfg: cfg, logger: logger}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback appends a backend tried after every earlier entry.
func (fg *FallbackGroup[T]) AddFallback(name string, backend T) {
	fg.add(name, backend)
}

func (fg *FallbackGroup[T]) add(name string, backend T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	cbCfg.Logger = fg.logger
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// ExecuteWithResult calls fn against each backend in group order until one
// succeeds. When every backend fails, the returned error wraps [ErrAllFailed]
// and names the last backend tried. This is a package-level function because
// Go methods cannot carry their own type parameters.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero     R
		lastErr  error
		lastName string
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.backend)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr, lastName = err, entry.name
		if errors.Is(err, ErrCircuitOpen) {
			fg.logger.Debug("provider skipped, circuit open", "provider", entry.name)
		} else {
			fg.logger.Warn("provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: last backend %s: %v", ErrAllFailed, lastName, lastErr)
}
