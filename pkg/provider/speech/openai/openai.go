// Package openai provides a speech provider backed by the OpenAI audio
// transcription API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// Provider implements speech.Provider using the OpenAI transcription API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for pointing
// the provider at an OpenAI-compatible transcription server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

var _ speech.Provider = (*Provider)(nil)

// New constructs a new OpenAI speech Provider. model selects the
// transcription model (e.g., "whisper-1", "gpt-4o-transcribe").
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Recognize implements speech.Provider.
//
// PhraseHints are joined into the transcription prompt — the OpenAI API has
// no dedicated bias-list parameter, but the prompt is documented to steer
// recognition of uncommon vocabulary the same way.
//
// The API does not report per-utterance confidence, so the result carries a
// single utterance with Confidence zero; callers that need confidence-driven
// behaviour obtain it from providers that report one.
func (p *Provider) Recognize(ctx context.Context, req speech.Request) (*speech.TranscriptionResult, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("openai: empty audio: %w", speech.ErrUnintelligible)
	}

	format := req.Format
	if format == "" {
		format = "wav"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(req.Audio), "dictation."+format, "audio/"+format),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		// The transcription endpoint takes ISO-639-1 codes; trim a region
		// subtag from BCP-47 hints like "en-US".
		lang, _, _ := strings.Cut(req.Language, "-")
		params.Language = oai.String(lang)
	}
	if len(req.PhraseHints) > 0 {
		params.Prompt = oai.String(strings.Join(req.PhraseHints, ", "))
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classifyErr(err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, speech.ErrUnintelligible
	}

	return &speech.TranscriptionResult{
		Text: resp.Text,
		Utterances: []speech.Utterance{
			{Text: resp.Text},
		},
	}, nil
}

// classifyErr maps OpenAI SDK errors onto the package sentinel errors so the
// caller's retry policy can distinguish throttling from hard failures.
func classifyErr(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", speech.ErrRateLimited, err)
	}
	return fmt.Errorf("openai: transcription: %w", err)
}
