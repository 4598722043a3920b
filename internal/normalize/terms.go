package normalize

import "strings"

// DefaultPairs returns the built-in correction dictionary for clinical
// dictation. Entries cover recognizer splits of drug names and common
// clinical vocabulary. Callers may append their own pairs before calling New.
func DefaultPairs() []CorrectionPair {
	return []CorrectionPair{
		{From: "high per tension", To: "hypertension"},
		{From: "hyper tension", To: "hypertension"},
		{From: "lie sin oh pril", To: "lisinopril"},
		{From: "liss in o pril", To: "lisinopril"},
		{From: "met for min", To: "metformin"},
		{From: "a tor va statin", To: "atorvastatin"},
		{From: "ator va statin", To: "atorvastatin"},
		{From: "am low di pine", To: "amlodipine"},
		{From: "oh mep razole", To: "omeprazole"},
		{From: "die a betes", To: "diabetes"},
		{From: "tacky cardia", To: "tachycardia"},
		{From: "brady cardia", To: "bradycardia"},
		{From: "a fib", To: "atrial fibrillation"},
		{From: "sob", To: "shortness of breath"},
		{From: "my o cardial", To: "myocardial"},
		{From: "in fark shun", To: "infarction"},
		{From: "new monia", To: "pneumonia"},
		{From: "an gina", To: "angina"},
		{From: "die af oresis", To: "diaphoresis"},
		{From: "milligrams", To: "mg"},
		{From: "micrograms", To: "mcg"},
		{From: "milliliters", To: "ml"},
	}
}

// medicalTerms is the vocabulary scanned when measuring how much clinical
// content a transcript carries. Overlapping phrases are fine; each occurrence
// counts once per term.
var medicalTerms = []string{
	"blood pressure", "heart rate", "respiratory rate", "temperature", "pulse",
	"systolic", "diastolic", "bpm", "mmhg",

	"chest pain", "shortness of breath", "nausea", "vomiting", "dizziness",
	"headache", "abdominal pain", "fever", "fatigue", "cough",

	"cardiovascular", "respiratory", "neurological", "gastrointestinal",
	"musculoskeletal", "dermatologic", "genitourinary", "endocrine",

	"diagnosis", "treatment", "medication", "prescription", "dosage",
	"symptoms", "examination", "assessment", "history", "patient",
	"chronic", "acute", "bilateral", "unilateral", "anterior", "posterior",

	"x-ray", "ct scan", "mri", "ultrasound", "ekg", "ecg", "blood test",
	"biopsy", "surgery", "procedure",
}

// CountMedicalTerms returns the number of occurrences of known clinical
// vocabulary in text, case-insensitive. Used by transcript quality scoring.
func CountMedicalTerms(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	count := 0
	for _, term := range medicalTerms {
		count += strings.Count(lower, term)
	}
	return count
}

// PhraseHints returns the recognition bias vocabulary handed to the speech
// provider so clinical terms are transcribed correctly in the first place.
func PhraseHints() []string {
	return []string{
		"hypertension", "lisinopril", "metformin", "atorvastatin",
		"amlodipine", "omeprazole", "atrial fibrillation", "tachycardia",
		"bradycardia", "myocardial infarction", "pneumonia", "angina",
		"diaphoresis", "blood pressure", "heart rate", "respiratory rate",
		"oxygen saturation", "milligrams", "substernal",
	}
}
