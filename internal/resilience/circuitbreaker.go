// Package resilience provides retry, circuit breaker, and provider failover
// primitives for the recognition and generative backends the pipeline calls.
//
// The central type is [CircuitBreaker], a classic three-state breaker
// (closed → open → half-open) that protects callers from cascading failures.
// [FallbackGroup] composes multiple instances of any provider type with per-entry
// circuit breakers so that a failing primary is automatically bypassed in favour
// of healthy fallbacks. [Retry] adds bounded exponential backoff for throttled
// provider calls.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls: in the open state before the reset timeout, and in the
// half-open state once the probe window is exhausted.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call. Consecutive failures are counted.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout has elapsed since the last failure.
	StateOpen

	// StateHalfOpen admits a bounded number of probe calls. Enough successes
	// close the breaker; a single failure reopens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds the tuning knobs for one backend's breaker.
// Zero-value fields take defaults.
type CircuitBreakerConfig struct {
	// Name labels the guarded backend in log messages.
	Name string

	// MaxFailures is the consecutive-failure count that trips the breaker
	// open. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing the
	// backend again. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the probe calls admitted per half-open window, and
	// is also the success count required to close. Default: 3.
	HalfOpenMax int

	// Logger receives state transitions. Default: slog.Default.
	Logger *slog.Logger
}

// CircuitBreaker guards one recognition or generative backend. After
// MaxFailures consecutive failures it rejects calls outright, which keeps a
// dead backend from adding its full timeout to every dictation session; the
// [FallbackGroup] then moves on to the next backend immediately.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	logger       *slog.Logger

	mu          sync.Mutex
	state       State
	failures    int // consecutive failures while closed
	lastFailure time.Time
	probes      int // calls admitted in the current half-open window
	probeFails  int
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		logger:       logger,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker admits the call, and records its outcome.
// Open-state rejections return [ErrCircuitOpen] without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, err := cb.admit()
	if err != nil {
		return err
	}

	callErr := fn()
	cb.settle(probing, callErr)
	return callErr
}

// admit decides whether a call may proceed, applying the open to half-open
// transition once the reset timeout has elapsed. Reports whether the call
// counts as a half-open probe.
func (cb *CircuitBreaker) admit() (probing bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		cb.logger.Info("circuit half-open, probing backend", "provider", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			// Probe window exhausted; reject until a probe outcome decides.
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// settle records the outcome of an admitted call.
func (cb *CircuitBreaker) settle(probing bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if !probing {
			cb.failures = 0
			return
		}
		if cb.probes-cb.probeFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeFails = 0
			cb.logger.Info("circuit closed, backend recovered", "provider", cb.name)
		}
		return
	}

	cb.lastFailure = time.Now()
	if probing {
		// One failed probe reopens for a full reset timeout.
		cb.probeFails++
		cb.state = StateOpen
		cb.failures = cb.maxFailures
		cb.logger.Warn("circuit reopened, probe failed", "provider", cb.name)
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.logger.Warn("circuit opened, backend failing",
			"provider", cb.name, "consecutive_failures", cb.failures)
	}
}

// State returns the breaker's current state. An open breaker whose reset
// timeout has elapsed reports half-open; the stored transition happens on the
// next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
	cb.logger.Info("circuit manually reset", "provider", cb.name)
}
