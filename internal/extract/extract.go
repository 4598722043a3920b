// Package extract turns masked dictation text into a structured clinical
// record by driving a generative text provider against a fixed response
// schema.
//
// The [Extractor] sends the masked text to a [genai.Provider] with a system
// instruction that enumerates the exact JSON shape of a [soap.Document] and
// the sentinel rule: anything the dictation does not explicitly state is
// recorded as "Not specified", never inferred. Generation runs at low
// temperature; deterministic output is a correctness requirement for
// clinical content, not a tuning preference.
//
// A reply that is not valid schema JSON gets exactly one retry with a
// stricter reformulation of the instruction. A second failure surfaces as a
// [*ParseError] carrying the raw provider output for operator inspection —
// the extractor never fabricates a partially filled structure.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DandaAkhilReddy/audicia/internal/soap"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/genai"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 3000
)

// systemPrompt instructs the model on schema, sentinel, and accuracy rules.
// Placeholder tokens of the form [[PHI:...]] are opaque identifiers the model
// must carry through unchanged.
const systemPrompt = `You are a clinical documentation assistant. Convert the physician dictation into a structured SOAP note.

CRITICAL RULES:
1. NEVER infer, guess, or fabricate clinical information. Use exactly "Not specified" for any field the dictation does not explicitly state.
2. Extract ALL clinical information present in the dictation.
3. Preserve any [[PHI:...]] placeholder tokens exactly as written; they are opaque identifiers.
4. Use proper medical terminology and include units for all measurements.
5. Record blood pressure as systolic/diastolic (e.g., "140/90").

Respond with ONLY a JSON object in this exact structure (no markdown, no prose):
{
  "subjective": {
    "chief_complaint": "string",
    "history_present_illness": "string",
    "review_of_systems": "string",
    "past_medical_history": "string",
    "medications": "string",
    "allergies": "string",
    "social_history": "string",
    "family_history": "string"
  },
  "objective": {
    "vital_signs": {
      "blood_pressure": "string",
      "heart_rate": "string",
      "temperature": "string",
      "respiratory_rate": "string",
      "oxygen_saturation": "string",
      "weight": "string",
      "height": "string",
      "bmi": "string"
    },
    "physical_examination": "string",
    "laboratory_results": "string",
    "imaging_results": "string"
  },
  "assessment": {
    "primary_diagnosis": "string",
    "icd10_codes": ["string"],
    "differential_diagnoses": ["string"],
    "clinical_impression": "string"
  },
  "plan": {
    "medications": ["string"],
    "procedures": ["string"],
    "laboratory_tests": ["string"],
    "imaging_studies": ["string"],
    "follow_up": "string",
    "patient_education": "string",
    "referrals": ["string"]
  }
}`

// strictRetrySuffix is appended to the system prompt on the single retry
// after an unparseable reply.
const strictRetrySuffix = `

YOUR PREVIOUS RESPONSE WAS NOT VALID JSON. Respond with raw JSON only:
- The first character of your response must be { and the last must be }.
- No markdown fences, no commentary, no text outside the JSON object.`

// PatientContext carries optional demographic and history fields included in
// the request. Free-text fields sourced from PHI-bearing records must be
// masked by the caller before they reach the extractor.
type PatientContext struct {
	Age             int
	Gender          string
	PriorDiagnoses  []string
	Medications     []string
	Allergies       []string
}

// ParseError reports that the provider's reply could not be parsed into the
// record schema after the retry. Raw preserves the offending output for
// operator inspection.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: provider output is not schema JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithTemperature overrides the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) {
		e.temperature = temp
	}
}

// WithMaxTokens overrides the completion token cap. Default: 3000.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		e.maxTokens = n
	}
}

// Extractor drives a [genai.Provider] to produce structured records.
// It is safe for concurrent use.
type Extractor struct {
	genai       genai.Provider
	temperature float64
	maxTokens   int
}

// New returns an Extractor backed by the given provider.
func New(provider genai.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		genai:       provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract produces a structured record from masked dictation text.
// pctx may be nil. Every field absent from the model reply is filled with the
// [soap.NotSpecified] sentinel; a reply that cannot be parsed at all, even
// after the stricter retry, returns a [*ParseError].
//
// The returned usage sums the token accounting of every completion issued,
// including a failed first attempt.
func (e *Extractor) Extract(ctx context.Context, maskedText string, pctx *PatientContext) (*soap.Document, genai.Usage, error) {
	var usage genai.Usage

	if strings.TrimSpace(maskedText) == "" {
		return nil, usage, fmt.Errorf("extract: empty dictation text")
	}

	payload := buildUserPayload(maskedText, pctx)

	doc, u, parseErr, err := e.attempt(ctx, systemPrompt, payload)
	addUsage(&usage, u)
	if err != nil {
		return nil, usage, err
	}
	if parseErr == nil {
		return doc, usage, nil
	}

	// One stricter retry, then surface the raw output.
	doc, u, parseErr, err = e.attempt(ctx, systemPrompt+strictRetrySuffix, payload)
	addUsage(&usage, u)
	if err != nil {
		return nil, usage, err
	}
	if parseErr != nil {
		return nil, usage, parseErr
	}
	return doc, usage, nil
}

// attempt issues one completion and tries to parse it. Transport errors come
// back in err; schema failures in parseErr so the caller can retry.
func (e *Extractor) attempt(ctx context.Context, sysPrompt, payload string) (*soap.Document, genai.Usage, *ParseError, error) {
	resp, err := e.genai.Complete(ctx, genai.CompletionRequest{
		SystemPrompt: sysPrompt,
		UserPayload:  payload,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return nil, genai.Usage{}, nil, fmt.Errorf("extract: complete: %w", err)
	}

	doc, perr := parseDocument(resp.Content)
	if perr != nil {
		return nil, resp.Usage, perr, nil
	}
	return doc, resp.Usage, nil, nil
}

// addUsage accumulates token accounting across completion attempts.
func addUsage(total *genai.Usage, u genai.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}

// buildUserPayload combines the optional patient context with the masked
// dictation text.
func buildUserPayload(maskedText string, pctx *PatientContext) string {
	var parts []string

	if pctx != nil {
		var info []string
		if pctx.Age > 0 {
			info = append(info, fmt.Sprintf("Age: %d", pctx.Age))
		}
		if pctx.Gender != "" {
			info = append(info, "Gender: "+pctx.Gender)
		}
		if len(pctx.PriorDiagnoses) > 0 {
			info = append(info, "Known conditions: "+strings.Join(pctx.PriorDiagnoses, ", "))
		}
		if len(pctx.Medications) > 0 {
			info = append(info, "Current medications: "+strings.Join(pctx.Medications, ", "))
		}
		if len(pctx.Allergies) > 0 {
			info = append(info, "Allergies: "+strings.Join(pctx.Allergies, ", "))
		}
		if len(info) > 0 {
			parts = append(parts, "PATIENT CONTEXT:\n"+strings.Join(info, "\n"))
		}
	}

	parts = append(parts, "DICTATION TO PROCESS:\n\""+maskedText+"\"")
	return strings.Join(parts, "\n\n")
}

// parseDocument unmarshals the model reply into a Document and backfills the
// sentinel into any field the reply omitted. Markdown code fences are
// stripped first; models wrap JSON in them despite instructions.
func parseDocument(content string) (*soap.Document, *ParseError) {
	cleaned := stripMarkdown(content)

	var wire wireDocument
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, &ParseError{Raw: content, Err: err}
	}

	doc := wire.toDocument()
	doc.FillMissing()
	return doc, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
