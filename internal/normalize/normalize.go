// Package normalize corrects recognizer output against a dictionary of
// domain-term correction pairs before any downstream stage sees the text.
//
// Speech recognizers reliably mangle clinical vocabulary ("lie sin oh pril"
// for lisinopril, "high per tension" for hypertension). The normalizer walks
// the transcript token stream and replaces known misrecognitions with their
// canonical terms, longest window first so multi-word corrections take
// precedence over partial single-word matches.
package normalize

import (
	"strings"

	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

// CorrectionPair maps one recognizer misrecognition to its canonical term.
// From is matched case-insensitively against whitespace-token windows of the
// transcript.
type CorrectionPair struct {
	From string
	To   string
}

// Substitution records one replacement the normalizer applied.
type Substitution struct {
	// Original is the transcript window that was replaced.
	Original string
	// Corrected is the canonical term it was replaced with.
	Corrected string
}

// NormalizedText is the output of one normalization pass.
type NormalizedText struct {
	// Text is the corrected transcript.
	Text string

	// Substitutions lists every replacement applied, in transcript order.
	Substitutions []Substitution

	// Confidence is the arithmetic mean of the per-utterance confidences of
	// the input, or 0.0 when the input carried none.
	Confidence float64
}

// Normalizer applies an ordered correction dictionary to transcripts.
// It is safe for concurrent use; the dictionary is immutable after New.
type Normalizer struct {
	byKey    map[string]string
	maxWords int
}

// New builds a Normalizer from the given correction pairs. Pairs with an
// empty From side are ignored. When two pairs share a From (case-insensitive),
// the later one wins.
func New(pairs []CorrectionPair) *Normalizer {
	n := &Normalizer{byKey: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		key := strings.ToLower(strings.TrimSpace(p.From))
		if key == "" {
			continue
		}
		n.byKey[key] = p.To
		if w := len(strings.Fields(key)); w > n.maxWords {
			n.maxWords = w
		}
	}
	return n
}

// Normalize corrects the transcript text and aggregates its confidence.
// The input is never mutated and the method never fails; an empty transcript
// yields an empty NormalizedText with confidence 0.0.
func (n *Normalizer) Normalize(t *speech.TranscriptionResult) NormalizedText {
	if t == nil {
		return NormalizedText{}
	}

	out := NormalizedText{
		Text:       t.Text,
		Confidence: meanConfidence(t.Utterances),
	}

	tokens := strings.Fields(t.Text)
	if len(tokens) == 0 || n.maxWords == 0 {
		return out
	}

	var output []string
	i := 0
	for i < len(tokens) {
		maxN := n.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		// Longest window first so "high per tension" beats any single-token
		// correction inside it.
		for w := maxN; w >= 1; w-- {
			window := strings.Join(tokens[i:i+w], " ")
			core, trail := splitTrailingPunct(window)

			corrected, ok := n.byKey[strings.ToLower(core)]
			if !ok {
				continue
			}

			output = append(output, strings.Fields(corrected+trail)...)
			out.Substitutions = append(out.Substitutions, Substitution{
				Original:  core,
				Corrected: corrected,
			})
			i += w
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	// An untouched transcript keeps its original spacing and line breaks;
	// only a transcript with at least one correction is rebuilt from tokens.
	if len(out.Substitutions) == 0 {
		return out
	}
	out.Text = strings.Join(output, " ")
	return out
}

// meanConfidence averages the per-utterance confidences. No utterances means
// no confidence signal, reported as 0.0 rather than an error.
func meanConfidence(utterances []speech.Utterance) float64 {
	if len(utterances) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, u := range utterances {
		sum += u.Confidence
	}
	return sum / float64(len(utterances))
}

// splitTrailingPunct splits sentence punctuation off the end of a token
// window so "tension." still matches the dictionary entry "tension".
func splitTrailingPunct(s string) (core, trail string) {
	core = strings.TrimRight(s, ".,;:!?")
	return core, s[len(core):]
}
