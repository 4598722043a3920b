// Package scoring computes the composite quality and accuracy scores for a
// completed pipeline run.
//
// Both scores are deterministic pure functions of their inputs. The weights
// are a black-box contract inherited from the original scoring model and must
// not be adjusted without an explicitly validated replacement; downstream
// review queues are calibrated against them.
package scoring

import (
	"math"
	"strings"

	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/internal/soap"
	"github.com/DandaAkhilReddy/audicia/internal/validate"
)

// Quality score weights: transcription confidence, text volume, and clinical
// vocabulary density.
const (
	qualityConfidenceWeight = 0.5
	qualityLengthWeight     = 0.3
	qualityTermsWeight      = 0.2

	lengthNormalization = 1000.0
	termsNormalization  = 10.0
)

// Accuracy score weights: field completeness and terminology coverage.
const (
	accuracyFilledWeight      = 0.7
	accuracyTerminologyWeight = 0.3
)

// terminologyChecklist is scanned against the serialized record when scoring
// accuracy. Coverage is normalized to ten found terms.
var terminologyChecklist = []string{
	"diagnosis", "treatment", "medication", "examination", "assessment",
	"chronic", "acute", "bilateral", "unilateral", "anterior", "posterior",
	"cardiovascular", "respiratory", "neurological", "gastrointestinal",
}

// Scores holds the two composite values, each in [0,1].
type Scores struct {
	// Quality reflects the transcript: recognition confidence, length, and
	// clinical vocabulary density.
	Quality float64

	// Accuracy reflects the structured record: completeness and terminology
	// coverage, rounded to three decimal places.
	Accuracy float64
}

// Score computes both composite scores. Validation findings travel with the
// final result on their own; they do not deflate either score, which is part
// of the weighting contract. Identical inputs always yield identical scores.
func Score(normalized normalize.NormalizedText, doc *soap.Document, issues []validate.Issue) Scores {
	return Scores{
		Quality:  quality(normalized),
		Accuracy: accuracy(doc),
	}
}

// quality = 0.5·confidence + 0.3·min(len/1000, 1) + 0.2·min(terms/10, 1),
// clipped to [0,1].
func quality(n normalize.NormalizedText) float64 {
	lengthScore := math.Min(float64(len(n.Text))/lengthNormalization, 1.0)
	termScore := math.Min(float64(normalize.CountMedicalTerms(n.Text))/termsNormalization, 1.0)

	q := qualityConfidenceWeight*n.Confidence +
		qualityLengthWeight*lengthScore +
		qualityTermsWeight*termScore
	return clip01(q)
}

// accuracy = 0.7·(filled fields / total fields) + 0.3·min(found/10, 1),
// rounded to three decimals.
func accuracy(doc *soap.Document) float64 {
	filled, total := doc.CountFilled()
	filledScore := 0.0
	if total > 0 {
		filledScore = float64(filled) / float64(total)
	}

	text := strings.ToLower(doc.Text())
	found := 0
	for _, term := range terminologyChecklist {
		if strings.Contains(text, term) {
			found++
		}
	}
	termScore := math.Min(float64(found)/termsNormalization, 1.0)

	a := accuracyFilledWeight*filledScore + accuracyTerminologyWeight*termScore
	return math.Round(clip01(a)*1000) / 1000
}

func clip01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
