package normalize_test

import (
	"testing"

	"github.com/DandaAkhilReddy/audicia/internal/normalize"
	"github.com/DandaAkhilReddy/audicia/pkg/provider/speech"
)

func TestNormalizeAppliesLongestMatchFirst(t *testing.T) {
	t.Parallel()

	n := normalize.New([]normalize.CorrectionPair{
		{From: "tension", To: "WRONG"},
		{From: "high per tension", To: "hypertension"},
	})

	got := n.Normalize(&speech.TranscriptionResult{
		Text: "patient has high per tension today",
	})

	if got.Text != "patient has hypertension today" {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Substitutions) != 1 {
		t.Fatalf("Substitutions = %v, want exactly one", got.Substitutions)
	}
	if got.Substitutions[0].Original != "high per tension" || got.Substitutions[0].Corrected != "hypertension" {
		t.Errorf("Substitution = %+v", got.Substitutions[0])
	}
}

func TestNormalizeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	n := normalize.New([]normalize.CorrectionPair{
		{From: "lie sin oh pril", To: "lisinopril"},
	})

	got := n.Normalize(&speech.TranscriptionResult{
		Text: "started Lie Sin Oh Pril ten milligrams",
	})

	if got.Text != "started lisinopril ten milligrams" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestNormalizePreservesTrailingPunctuation(t *testing.T) {
	t.Parallel()

	n := normalize.New([]normalize.CorrectionPair{
		{From: "new monia", To: "pneumonia"},
	})

	got := n.Normalize(&speech.TranscriptionResult{
		Text: "concern for new monia. Will order imaging",
	})

	if got.Text != "concern for pneumonia. Will order imaging" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestNormalizeKeepsWhitespaceWithoutCorrections(t *testing.T) {
	t.Parallel()

	n := normalize.New(normalize.DefaultPairs())

	text := "Chief complaint:  chest pain.\n\nPlan:\n  follow up in two weeks."
	got := n.Normalize(&speech.TranscriptionResult{Text: text})

	if got.Text != text {
		t.Errorf("Text = %q, want the transcript untouched including spacing", got.Text)
	}
	if len(got.Substitutions) != 0 {
		t.Errorf("Substitutions = %v, want none", got.Substitutions)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		utterances []speech.Utterance
		want       float64
	}{
		{
			name: "mean of utterances",
			utterances: []speech.Utterance{
				{Confidence: 0.8},
				{Confidence: 0.6},
			},
			want: 0.7,
		},
		{
			name:       "no utterances defaults to zero",
			utterances: nil,
			want:       0.0,
		},
	}

	n := normalize.New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(&speech.TranscriptionResult{
				Text:       "some text",
				Utterances: tt.utterances,
			})
			if got.Confidence != tt.want {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.want)
			}
		})
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	t.Parallel()

	n := normalize.New(normalize.DefaultPairs())

	got := n.Normalize(&speech.TranscriptionResult{})
	if got.Text != "" || got.Confidence != 0.0 || len(got.Substitutions) != 0 {
		t.Errorf("Normalize(empty) = %+v, want zero value", got)
	}

	got = n.Normalize(nil)
	if got.Text != "" || got.Confidence != 0.0 {
		t.Errorf("Normalize(nil) = %+v, want zero value", got)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := &speech.TranscriptionResult{Text: "high per tension"}
	n := normalize.New(normalize.DefaultPairs())
	n.Normalize(in)

	if in.Text != "high per tension" {
		t.Errorf("input mutated to %q", in.Text)
	}
}

func TestCountMedicalTerms(t *testing.T) {
	t.Parallel()

	text := "Patient complains of chest pain. Blood pressure 140 over 90. History of hypertension."
	if got := normalize.CountMedicalTerms(text); got < 3 {
		t.Errorf("CountMedicalTerms = %d, want at least 3 (chest pain, blood pressure, patient, history)", got)
	}
	if got := normalize.CountMedicalTerms(""); got != 0 {
		t.Errorf("CountMedicalTerms(empty) = %d, want 0", got)
	}
}
