// Package phi detects identifying spans in dictation text and substitutes
// reversible mask tokens, so that no protected health information ever
// reaches the generative provider.
//
// Masking is session-scoped: [Masker.Mask] returns a [MaskingContext] that
// maps each generated token back to its original span. The context is the
// only place originals survive; it must never be persisted or logged, and the
// pipeline destroys it unconditionally when the run ends.
//
// Detection favors recall over precision. An ambiguous span is masked rather
// than left exposed; the cost of an over-masked word is a slightly awkward
// record, the cost of a leaked identifier is a compliance breach.
package phi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DandaAkhilReddy/audicia/internal/soap"
)

// Kind classifies a detected identifying span.
type Kind string

// Detected entity kinds, following the HIPAA Safe Harbor identifier
// categories relevant to dictation text.
const (
	KindName    Kind = "NAME"
	KindDate    Kind = "DATE"
	KindSSN     Kind = "SSN"
	KindPhone   Kind = "PHONE"
	KindMRN     Kind = "MRN"
	KindEmail   Kind = "EMAIL"
	KindAddress Kind = "ADDRESS"
)

// Entity is one identifying span found in the input text. Entities are
// ephemeral; they exist only inside a session's MaskingContext.
type Entity struct {
	Kind     Kind
	Original string
	Start    int
	End      int
}

// Detector finds identifying spans in text. Implementations must be safe for
// concurrent use and must report accurate byte offsets into the input.
type Detector interface {
	Detect(text string) []Entity
}

// MaskingError reports that masking could not guarantee removal of a detected
// entity. It is fatal for the session: the pipeline must abort rather than
// forward partially masked text. The error message names the entity kind but
// never the entity value.
type MaskingError struct {
	Kind   Kind
	Detail string
}

func (e *MaskingError) Error() string {
	return fmt.Sprintf("phi: masking failed for %s entity: %s", e.Kind, e.Detail)
}

// MaskingContext holds the token-to-entity mapping for one pipeline run.
// It is exclusively owned by that run, is not safe for concurrent use, and
// must be destroyed via [MaskingContext.Destroy] when the run ends,
// regardless of outcome.
type MaskingContext struct {
	tokens    map[string]Entity
	restored  map[string]struct{}
	destroyed bool
}

// Len reports the number of masked entities in the context.
func (mc *MaskingContext) Len() int {
	if mc == nil {
		return 0
	}
	return len(mc.tokens)
}

// KindCounts reports how many masked entities of each kind the context
// holds. Safe to expose: counts carry no identifying content.
func (mc *MaskingContext) KindCounts() map[Kind]int {
	if mc == nil || mc.destroyed {
		return nil
	}
	counts := make(map[Kind]int)
	for _, e := range mc.tokens {
		counts[e.Kind]++
	}
	return counts
}

// DroppedCount reports how many masked entities were never encountered
// during unmasking. Tokens the generative stage did not echo back restore
// nothing; the count carries no identifying content.
func (mc *MaskingContext) DroppedCount() int {
	if mc == nil || mc.destroyed {
		return 0
	}
	return len(mc.tokens) - len(mc.restored)
}

// Destroy drops every token mapping. After Destroy the context restores
// nothing. Calling Destroy more than once is harmless.
func (mc *MaskingContext) Destroy() {
	if mc == nil || mc.destroyed {
		return
	}
	for t := range mc.tokens {
		mc.tokens[t] = Entity{}
		delete(mc.tokens, t)
	}
	mc.restored = nil
	mc.destroyed = true
}

// Masker performs reversible PHI substitution. It is safe for concurrent use;
// per-run state lives in the MaskingContext, not the Masker.
type Masker struct {
	detectors []Detector
}

// NewMasker builds a Masker over the given detectors. With no arguments it
// uses [DefaultDetectors].
func NewMasker(detectors ...Detector) *Masker {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &Masker{detectors: detectors}
}

// Mask replaces every detected identifying span in text with a unique,
// unpredictable token of the form [[PHI:KIND:xxxxxxxxxxxx]], preserving all
// surrounding text exactly.
//
// After substitution, Mask verifies that none of the detected originals
// remain anywhere in the output; a residual is returned as a *MaskingError
// and the caller must abort the session.
func (m *Masker) Mask(text string) (string, *MaskingContext, error) {
	mc := &MaskingContext{
		tokens:   make(map[string]Entity),
		restored: make(map[string]struct{}),
	}
	if text == "" {
		return "", mc, nil
	}

	var detected []Entity
	for _, d := range m.detectors {
		detected = append(detected, d.Detect(text)...)
	}
	if len(detected) == 0 {
		return text, mc, nil
	}

	// Earliest start first; at equal starts the widest span wins so that a
	// full-name span beats a single-token match inside it.
	sort.Slice(detected, func(i, j int) bool {
		if detected[i].Start != detected[j].Start {
			return detected[i].Start < detected[j].Start
		}
		return detected[i].End > detected[j].End
	})

	var accepted []Entity
	lastEnd := -1
	for _, e := range detected {
		if e.Start < lastEnd {
			continue // covered by a wider accepted span
		}
		accepted = append(accepted, e)
		lastEnd = e.End
	}

	// Substitute back to front so earlier offsets stay valid.
	masked := text
	for i := len(accepted) - 1; i >= 0; i-- {
		e := accepted[i]
		token, err := newToken(e.Kind)
		if err != nil {
			mc.Destroy()
			return "", nil, &MaskingError{Kind: e.Kind, Detail: "token generation failed"}
		}
		masked = masked[:e.Start] + token + masked[e.End:]
		mc.tokens[token] = e
	}

	// Verify removal of every detected original, including entities skipped
	// as overlaps; an identical span elsewhere must also have been caught.
	// A detected span embedded in a longer word ("Lee" inside "Leesburg") is
	// not a residual.
	for _, e := range detected {
		if e.Original != "" && containsResidual(masked, e.Original) {
			mc.Destroy()
			return "", nil, &MaskingError{Kind: e.Kind, Detail: "entity survived substitution"}
		}
	}

	return masked, mc, nil
}

// UnmaskText replaces every known mask token in text with its original span.
// Tokens absent from the context are left untouched; unknown token-shaped
// substrings never occur in practice because tokens are unguessable.
func (m *Masker) UnmaskText(text string, mc *MaskingContext) string {
	if mc == nil || mc.destroyed {
		return text
	}
	for token, e := range mc.tokens {
		if !strings.Contains(text, token) {
			continue
		}
		text = strings.ReplaceAll(text, token, e.Original)
		if mc.restored == nil {
			mc.restored = make(map[string]struct{})
		}
		mc.restored[token] = struct{}{}
	}
	return text
}

// UnmaskDocument walks every leaf string of the document and restores known
// mask tokens in place. Tokens that the generative stage did not echo back
// are simply never encountered, which is expected and non-fatal.
func (m *Masker) UnmaskDocument(doc *soap.Document, mc *MaskingContext) {
	if doc == nil || mc == nil || mc.destroyed {
		return
	}
	doc.WalkStrings(func(s *string) {
		if !strings.Contains(*s, "[[PHI:") {
			return
		}
		*s = m.UnmaskText(*s, mc)
	})
}

// containsResidual reports whether s occurs in text as a standalone span.
// Occurrences flanked by a letter or digit are part of a longer word the
// detectors judged benign and do not count.
func containsResidual(text, s string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], s)
		if i < 0 {
			return false
		}
		i += from
		if !flankedByAlnum(text, i, i+len(s)) {
			return true
		}
		from = i + 1
	}
}

// flankedByAlnum reports whether the runes immediately around text[start:end]
// make the span part of a longer word or number.
func flankedByAlnum(text string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(text[:start]); isAlnum(r) {
		return true
	}
	if r, _ := utf8.DecodeRuneInString(text[end:]); isAlnum(r) {
		return true
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// newToken returns a mask token with 12 hex characters of entropy drawn from
// crypto/rand. Tokens are not sequential and carry no ordering information.
func newToken(kind Kind) (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("[[PHI:%s:%s]]", kind, hex.EncodeToString(b[:])), nil
}
