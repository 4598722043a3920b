package phi

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// DefaultDetectors returns the standard detector set: structured-format
// pattern detectors plus the phonetic name detector.
func DefaultDetectors() []Detector {
	return []Detector{
		NewPatternDetector(KindSSN, ssnPattern),
		NewPatternDetector(KindEmail, emailPattern),
		NewPatternDetector(KindPhone, phonePattern),
		NewPatternDetector(KindMRN, mrnPattern),
		NewPatternDetector(KindDate, datePattern),
		NewPatternDetector(KindAddress, addressPattern),
		NewNameDetector(),
	}
}

const (
	ssnPattern   = `\b\d{3}-\d{2}-\d{4}\b`
	emailPattern = `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`

	// North American phone formats; requires a separator or parentheses so
	// ten bare digits (a plausible lab value string) are not consumed.
	phonePattern = `(?:\(\d{3}\)\s?|\b\d{3}[-.])\d{3}[-.]\d{4}\b`

	// Medical record numbers only with an explicit cue; bare digit runs
	// collide with dosages and lab values.
	mrnPattern = `(?i)\b(?:MRN|medical record(?: number)?)\s*[:#]?\s*\d{5,12}\b`

	datePattern = `\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}` +
		`|(?:January|February|March|April|May|June|July|August|September|October|November|December|` +
		`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\b`

	addressPattern = `(?i)\b\d{1,5}\s+(?:[A-Za-z]+\s+){1,3}` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Drive|Lane|Ln|Boulevard|Blvd|Court|Ct|Way|Place|Pl)\b\.?`
)

// PatternDetector finds entities of one kind via a regular expression.
type PatternDetector struct {
	kind Kind
	re   *regexp.Regexp
}

// NewPatternDetector compiles pattern for the given kind. The pattern must be
// a valid regular expression; the built-in patterns are compiled at startup.
func NewPatternDetector(kind Kind, pattern string) *PatternDetector {
	return &PatternDetector{kind: kind, re: regexp.MustCompile(pattern)}
}

// Detect implements Detector.
func (d *PatternDetector) Detect(text string) []Entity {
	var out []Entity
	for _, loc := range d.re.FindAllStringIndex(text, -1) {
		out = append(out, Entity{
			Kind:     d.kind,
			Original: text[loc[0]:loc[1]],
			Start:    loc[0],
			End:      loc[1],
		})
	}
	return out
}

// NameDetector finds personal names through three signals, in order of
// strength: an honorific followed by capitalized tokens, an explicit naming
// cue ("patient name is ..."), and phonetic similarity of capitalized tokens
// against a common-name dictionary using Double Metaphone plus Jaro-Winkler
// ranking.
type NameDetector struct {
	threshold float64
	byCode    map[string][]string
}

var (
	honorificRe = regexp.MustCompile(
		`\b(?:Mr|Mrs|Ms|Mx|Dr)\.?\s+[A-Z][a-z']+(?:\s+[A-Z][a-z']+)?`)
	nameCueRe = regexp.MustCompile(
		`(?i)\b(?:patient(?:'s)? name is|name:)\s+` +
			`([A-Z][a-z']+(?:\s+[A-Z][a-z']+){0,2})`)
	wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)
)

// NewNameDetector builds the detector over the built-in name dictionary plus
// any additional names (e.g., the clinic's patient roster for the session).
func NewNameDetector(extra ...string) *NameDetector {
	d := &NameDetector{
		threshold: 0.84,
		byCode:    make(map[string][]string),
	}
	for _, n := range commonNames {
		d.add(n)
	}
	for _, n := range extra {
		d.add(n)
	}
	return d
}

func (d *NameDetector) add(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	p, s := matchr.DoubleMetaphone(name)
	for _, code := range []string{p, s} {
		if code != "" {
			d.byCode[code] = append(d.byCode[code], name)
		}
	}
}

// Detect implements Detector.
func (d *NameDetector) Detect(text string) []Entity {
	var out []Entity

	for _, loc := range honorificRe.FindAllStringIndex(text, -1) {
		out = append(out, Entity{
			Kind:     KindName,
			Original: text[loc[0]:loc[1]],
			Start:    loc[0],
			End:      loc[1],
		})
	}

	for _, loc := range nameCueRe.FindAllStringSubmatchIndex(text, -1) {
		// Group 1 is the name itself, excluding the cue phrase.
		start, end := loc[2], loc[3]
		out = append(out, Entity{
			Kind:     KindName,
			Original: text[start:end],
			Start:    start,
			End:      end,
		})
	}

	for _, loc := range wordRe.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if !startsUpper(word) || clinicalStopwords[strings.ToLower(word)] {
			continue
		}
		if d.matchesName(word) {
			out = append(out, Entity{
				Kind:     KindName,
				Original: word,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	return out
}

// matchesName reports whether word is phonetically close to a known name.
// Candidates are filtered by Double Metaphone code overlap and accepted when
// their Jaro-Winkler similarity meets the threshold, or when the word equals
// a known name outright.
func (d *NameDetector) matchesName(word string) bool {
	lower := strings.ToLower(word)
	p, s := matchr.DoubleMetaphone(lower)
	for _, code := range []string{p, s} {
		if code == "" {
			continue
		}
		for _, name := range d.byCode[code] {
			if name == lower {
				return true
			}
			if matchr.JaroWinkler(lower, name, false) >= d.threshold {
				return true
			}
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// clinicalStopwords are capitalized tokens that must never be treated as
// personal names even when a dictionary name sounds alike (e.g., "Bill" vs
// "bilateral" style collisions, sentence-initial common words, drug names).
var clinicalStopwords = map[string]bool{
	"patient": true, "blood": true, "pressure": true, "heart": true,
	"rate": true, "temperature": true, "history": true, "plan": true,
	"assessment": true, "subjective": true, "objective": true,
	"will": true, "started": true, "continue": true, "follow": true,
	"chest": true, "pain": true, "denies": true, "reports": true,
	"exam": true, "normal": true, "left": true, "right": true,
	"daily": true, "twice": true, "the": true, "no": true, "on": true,
	"lisinopril": true, "metformin": true, "atorvastatin": true,
	"amlodipine": true, "omeprazole": true, "aspirin": true,
	"tylenol": true, "ibuprofen": true, "warfarin": true,
}
