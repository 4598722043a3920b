package scoring_test

import (
	"math"
	"strings"
	"testing"

	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/internal/scoring"
	"github.com/DandaAkhilReddy/audicia/internal/soap"
)

func TestQualityWeighting(t *testing.T) {
	t.Parallel()

	// 500 chars, confidence 0.9, five occurrences of a known clinical term.
	text := strings.Repeat("chest pain ", 5)
	text += strings.Repeat("x", 500-len(text))

	n := normalize.NormalizedText{Text: text, Confidence: 0.9}
	got := scoring.Score(n, soap.New(), nil)

	// 0.5*0.9 + 0.3*(500/1000) + 0.2*(5/10) = 0.45 + 0.15 + 0.10.
	want := 0.70
	if math.Abs(got.Quality-want) > 1e-9 {
		t.Errorf("Quality = %v, want %v", got.Quality, want)
	}
}

func TestQualityClipping(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("diagnosis treatment medication assessment ", 100)
	n := normalize.NormalizedText{Text: long, Confidence: 1.0}
	got := scoring.Score(n, soap.New(), nil)

	if got.Quality != 1.0 {
		t.Errorf("Quality = %v, want clipped to 1.0", got.Quality)
	}

	got = scoring.Score(normalize.NormalizedText{}, soap.New(), nil)
	if got.Quality != 0.0 {
		t.Errorf("Quality = %v for empty input, want 0.0", got.Quality)
	}
}

func TestAccuracyEmptyDocument(t *testing.T) {
	t.Parallel()

	got := scoring.Score(normalize.NormalizedText{}, soap.New(), nil)
	if got.Accuracy != 0.0 {
		t.Errorf("Accuracy = %v for all-sentinel document, want 0.0", got.Accuracy)
	}
}

func TestAccuracyCombinesFieldsAndTerminology(t *testing.T) {
	t.Parallel()

	doc := soap.New()
	doc.Subjective.ChiefComplaint = "chest pain"
	doc.Assessment.PrimaryDiagnosis = "acute coronary syndrome"
	doc.Assessment.ClinicalImpression = "chronic condition, diagnosis confirmed on examination"

	got := scoring.Score(normalize.NormalizedText{}, doc, nil)

	// 3 of 23 fields filled; checklist hits: acute, chronic, diagnosis,
	// examination = 4 of 10 normalized.
	want := 0.7*(3.0/23.0) + 0.3*0.4
	want = math.Round(want*1000) / 1000
	if got.Accuracy != want {
		t.Errorf("Accuracy = %v, want %v", got.Accuracy, want)
	}
}

func TestAccuracyRoundedToThreeDecimals(t *testing.T) {
	t.Parallel()

	doc := soap.New()
	doc.Subjective.ChiefComplaint = "cough"

	got := scoring.Score(normalize.NormalizedText{}, doc, nil)

	// 0.7*(1/23) = 0.0304347..., rounded to 0.030.
	if got.Accuracy != 0.030 {
		t.Errorf("Accuracy = %v, want 0.030", got.Accuracy)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("patient reports chest pain and shortness of breath ", 10)
	n := normalize.NormalizedText{Text: text, Confidence: 0.9}
	doc := soap.New()
	doc.Subjective.ChiefComplaint = "chest pain"
	doc.Assessment.PrimaryDiagnosis = "angina"

	first := scoring.Score(n, doc, nil)
	for i := 0; i < 50; i++ {
		if got := scoring.Score(n, doc, nil); got != first {
			t.Fatalf("run %d: Score = %+v, want %+v", i, got, first)
		}
	}
}
