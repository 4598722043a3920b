// Package app wires all Audicia subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run blocks until the application is asked to stop, and Shutdown
// tears everything down in order. Dictation sessions enter through
// [App.Process], which delegates to the internal [Runner].
//
// For testing, inject doubles via functional options (WithRecordStore,
// WithAuditSink, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DandaAkhilReddy/audicia/internal/audit"
	"github.com/DandaAkhilReddy/audicia/internal/config"
	"github.com/DandaAkhilReddy/audicia/internal/extract"
	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/internal/observe"
	"github.com/DandaAkhilReddy/audicia/internal/phi"
	"github.com/DandaAkhilReddy/audicia/internal/pipeline"
	"github.com/DandaAkhilReddy/audicia/internal/resilience"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
	"github.com/DandaAkhilReddy/audicia/pkg/store"
	"github.com/DandaAkhilReddy/audicia/pkg/store/postgres"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	// Speech transcribes submitted audio. May be nil when every submission
	// arrives pre-transcribed.
	Speech speech.Provider

	// SpeechFallbacks are tried in order when the primary recognition backend
	// fails, matching the providers.speech_fallbacks config entries by
	// position.
	SpeechFallbacks []speech.Provider

	// GenAI is the primary generative backend for structured extraction.
	// Required.
	GenAI genai.Provider

	// GenAIFallbacks are tried in order when the primary fails, matching the
	// providers.genai_fallbacks config entries by position.
	GenAIFallbacks []genai.Provider
}

// App owns all subsystem lifetimes and orchestrates the dictation pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	logger  *slog.Logger
	metrics *observe.Metrics

	// Subsystems, initialised in New and torn down in Shutdown.
	records store.RecordStore
	sink    audit.Sink

	// mu guards cfg and runner across Reload.
	mu     sync.RWMutex
	runner *Runner

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRecordStore injects a record store instead of creating one from config.
func WithRecordStore(s store.RecordStore) Option {
	return func(a *App) { a.records = s }
}

// WithAuditSink injects an audit sink instead of creating one from config.
func WithAuditSink(s audit.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithLogger sets the structured logger. Default: slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: storage connection, provider
// failover assembly, and pipeline construction.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.GenAI == nil {
		return nil, fmt.Errorf("app: a generative provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	a.initRunner()
	return a, nil
}

// initStorage sets up the PostgreSQL store or falls back to in-memory
// implementations. One postgres connection pool serves both the record store
// and the audit sink.
func (a *App) initStorage(ctx context.Context) error {
	if a.records != nil && a.sink != nil {
		return nil // both injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.logger.LogAttrs(ctx, slog.LevelWarn,
			"no postgres dsn configured, records and audit events will not survive restarts")
		if a.records == nil {
			a.records = store.NewMemoryStore()
		}
		if a.sink == nil {
			a.sink = &audit.MemorySink{}
		}
		return nil
	}

	st, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}

	if a.records == nil {
		a.records = st
	}
	if a.sink == nil {
		a.sink = st
	}

	a.closers = append(a.closers, func() error {
		st.Close()
		return nil
	})
	return nil
}

// initRunner assembles the pipeline and the bounded submission runner.
func (a *App) initRunner() {
	normalizer := normalize.New(a.correctionPairs())
	masker := phi.NewMasker()
	extractor := extract.New(a.genAIProvider(), a.extractOptions()...)
	recorder := audit.NewRecorder(a.sink, audit.WithLogger(a.logger))

	pl := pipeline.New(normalizer, masker, extractor, recorder,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithRetryConfig(a.retryConfig()),
	)

	a.runner = NewRunner(RunnerConfig{
		Speech:        a.speechProvider(),
		Pipeline:      pl,
		Records:       a.records,
		MaxConcurrent: a.cfg.Pipeline.MaxConcurrentSessions,
		Language:      a.cfg.Pipeline.Language,
		SpeechRetry:   a.retryConfig(),
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
}

// correctionPairs merges the built-in clinical dictionary with the configured
// corrections. Configured pairs come last so they win on conflicts.
func (a *App) correctionPairs() []normalize.CorrectionPair {
	pairs := normalize.DefaultPairs()
	for _, c := range a.cfg.Pipeline.Corrections {
		pairs = append(pairs, normalize.CorrectionPair{From: c.From, To: c.To})
	}
	return pairs
}

// speechProvider returns the configured recognition backend, wrapped in a
// failover group when fallbacks are configured. Nil when no speech provider
// is configured at all.
func (a *App) speechProvider() speech.Provider {
	if a.providers.Speech == nil || len(a.providers.SpeechFallbacks) == 0 {
		return a.providers.Speech
	}

	fb := resilience.NewSpeechFallback(a.providers.Speech, a.cfg.Providers.Speech.Name, resilience.FallbackConfig{Logger: a.logger})
	for i, p := range a.providers.SpeechFallbacks {
		name := fmt.Sprintf("fallback-%d", i)
		if i < len(a.cfg.Providers.SpeechFallbacks) && a.cfg.Providers.SpeechFallbacks[i].Name != "" {
			name = a.cfg.Providers.SpeechFallbacks[i].Name
		}
		fb.AddFallback(name, p)
	}
	return fb
}

// genAIProvider returns the configured generative backend, wrapped in a
// failover group when fallbacks are configured.
func (a *App) genAIProvider() genai.Provider {
	if len(a.providers.GenAIFallbacks) == 0 {
		return a.providers.GenAI
	}

	fb := resilience.NewGenAIFallback(a.providers.GenAI, a.cfg.Providers.GenAI.Name, resilience.FallbackConfig{Logger: a.logger})
	for i, p := range a.providers.GenAIFallbacks {
		name := fmt.Sprintf("fallback-%d", i)
		if i < len(a.cfg.Providers.GenAIFallbacks) && a.cfg.Providers.GenAIFallbacks[i].Name != "" {
			name = a.cfg.Providers.GenAIFallbacks[i].Name
		}
		fb.AddFallback(name, p)
	}
	return fb
}

// extractOptions maps the pipeline config onto extractor options. Zero values
// keep the extractor defaults.
func (a *App) extractOptions() []extract.Option {
	var opts []extract.Option
	if t := a.cfg.Pipeline.Temperature; t > 0 {
		opts = append(opts, extract.WithTemperature(t))
	}
	if n := a.cfg.Pipeline.MaxTokens; n > 0 {
		opts = append(opts, extract.WithMaxTokens(n))
	}
	return opts
}

// retryConfig maps the pipeline config onto a resilience retry config. Zero
// values keep the resilience defaults.
func (a *App) retryConfig() resilience.RetryConfig {
	r := a.cfg.Pipeline.Retry
	return resilience.RetryConfig{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
	}
}

// Process runs one dictation submission through transcription, the pipeline,
// and persistence. See [Runner.Process].
func (a *App) Process(ctx context.Context, sub Submission) (*pipeline.Result, error) {
	return a.currentRunner().Process(ctx, sub)
}

func (a *App) currentRunner() *Runner {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runner
}

// Reload applies a hot-reloadable config change by rebuilding the pipeline
// and runner. Providers and storage keep their existing connections; sessions
// already in flight finish with the configuration they started with.
func (a *App) Reload(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.initRunner()
}

// Ready reports whether the application's dependencies are reachable.
// Storage backends that expose a probe are pinged; in-memory backends are
// always ready.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.records.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Records exposes the record store for read paths (listing, lookups).
func (a *App) Records() store.RecordStore {
	return a.records
}

// Run blocks until ctx is cancelled. Submissions arrive through [App.Process]
// from whatever front end main.go wires up.
func (a *App) Run(ctx context.Context) error {
	a.logger.LogAttrs(ctx, slog.LevelInfo, "app running",
		slog.Int("max_concurrent_sessions", a.currentRunner().maxConcurrent()),
	)
	<-ctx.Done()
	return ctx.Err()
}

// Shutdown drains in-flight sessions and then tears down all subsystems in
// order. It respects the context deadline: if ctx expires before draining or
// the closers finish, the remaining work is skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down",
			slog.Int("closers", len(a.closers)),
		)

		// Let in-flight sessions finish before their storage goes away.
		if err := a.currentRunner().drain(ctx); err != nil {
			a.logger.LogAttrs(ctx, slog.LevelWarn, "shutdown deadline exceeded while draining sessions",
				slog.String("err", err.Error()),
			)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.logger.LogAttrs(ctx, slog.LevelWarn, "shutdown deadline exceeded",
					slog.Int("remaining", len(a.closers)-i),
				)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.logger.LogAttrs(ctx, slog.LevelWarn, "closer error",
					slog.Int("index", i),
					slog.String("err", err.Error()),
				)
			}
		}

		a.logger.LogAttrs(ctx, slog.LevelInfo, "shutdown complete")
	})
	return shutdownErr
}
