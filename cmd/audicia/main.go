// Command audicia is the main entry point for the Audicia dictation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DandaAkhilReddy/audicia/internal/app"
	"github.com/DandaAkhilReddy/audicia/internal/config"
	"github.com/DandaAkhilReddy/audicia/internal/health"
	"github.com/DandaAkhilReddy/audicia/internal/observe"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
	genaianyllm "github.com/DandaAkhilReddy/audicia/pkg/provider/genai/anyllm"
	genaiopenai "github.com/DandaAkhilReddy/audicia/pkg/provider/genai/openai"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
	speechopenai "github.com/DandaAkhilReddy/audicia/pkg/provider/speech/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "audicia: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "audicia: %v\n", err)
		}
		return 1
	}

	// The level var lets the config watcher adjust verbosity at runtime.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("audicia starting",
		"config", *configPath,
		"metrics_addr", cfg.Server.MetricsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "audicia"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if cfg.Server.MetricsAddr != "" {
		startOpsServer(cfg.Server.MetricsAddr, application)
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Changed() {
			slog.Info("config changed but no hot-reloadable fields differ; restart to apply")
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.CorrectionsChanged || d.ExtractionChanged || d.ConcurrencyChanged {
			application.Reload(new)
			slog.Info("pipeline configuration reloaded",
				"corrections", d.CorrectionsChanged,
				"extraction", d.ExtractionChanged,
				"concurrency", d.ConcurrencyChanged,
			)
		}
	}, config.WithWatcherLogger(logger))
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Speech ────────────────────────────────────────────────────────────────

	reg.RegisterSpeech("openai", func(entry config.ProviderEntry) (speech.Provider, error) {
		var opts []speechopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, speechopenai.WithBaseURL(entry.BaseURL))
		}
		return speechopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// ── GenAI ─────────────────────────────────────────────────────────────────

	// The native client gives the richest error classification for the
	// default backend.
	reg.RegisterGenAI("openai", func(entry config.ProviderEntry) (genai.Provider, error) {
		var opts []genaiopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, genaiopenai.WithBaseURL(entry.BaseURL))
		}
		return genaiopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp and llamafile all
	// share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterGenAI(providerName, func(entry config.ProviderEntry) (genai.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return genaianyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterGenAI("ollama", func(entry config.ProviderEntry) (genai.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return genaianyllm.New("ollama", entry.Model, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Speech.Name; name != "" {
		p, err := reg.CreateSpeech(cfg.Providers.Speech)
		if err != nil {
			return nil, fmt.Errorf("create speech provider %q: %w", name, err)
		}
		ps.Speech = p
		slog.Info("provider created", "kind", "speech", "name", name)

		for i, entry := range cfg.Providers.SpeechFallbacks {
			fp, err := reg.CreateSpeech(entry)
			if err != nil {
				return nil, fmt.Errorf("create speech fallback %d (%q): %w", i, entry.Name, err)
			}
			ps.SpeechFallbacks = append(ps.SpeechFallbacks, fp)
			slog.Info("provider created", "kind", "speech-fallback", "name", entry.Name)
		}
	} else {
		slog.Warn("no speech provider configured; only pre-transcribed submissions will be accepted")
	}

	p, err := reg.CreateGenAI(cfg.Providers.GenAI)
	if err != nil {
		return nil, fmt.Errorf("create genai provider %q: %w", cfg.Providers.GenAI.Name, err)
	}
	ps.GenAI = p
	slog.Info("provider created", "kind", "genai", "name", cfg.Providers.GenAI.Name)

	for i, entry := range cfg.Providers.GenAIFallbacks {
		fp, err := reg.CreateGenAI(entry)
		if err != nil {
			return nil, fmt.Errorf("create genai fallback %d (%q): %w", i, entry.Name, err)
		}
		ps.GenAIFallbacks = append(ps.GenAIFallbacks, fp)
		slog.Info("provider created", "kind", "genai-fallback", "name", entry.Name)
	}

	return ps, nil
}

// ── Ops endpoints ─────────────────────────────────────────────────────────────

// startOpsServer serves the Prometheus scrape endpoint and the health probes
// in the background.
func startOpsServer(addr string, application *app.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(health.Checker{Name: "storage", Check: application.Ready}).Register(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "err", err)
		}
	}()
	slog.Info("ops endpoints listening", "addr", addr, "endpoints", "/metrics /healthz /readyz")
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
