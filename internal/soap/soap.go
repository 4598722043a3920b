// Package soap defines the structured clinical record produced by the
// extraction stage and consumed by every stage after it.
//
// A [Document] follows the four-section SOAP layout (Subjective, Objective,
// Assessment, Plan) used in clinical documentation. Field names and JSON tags
// mirror the wire schema the generative model is instructed to emit, so a
// model reply unmarshals directly into a Document.
//
// Documents are plain data with no synchronization; each pipeline run owns
// its Document exclusively.
package soap

import "strings"

// NotSpecified is the sentinel recorded in any field the dictation did not
// mention. Stages must never fabricate clinical content to fill a field;
// absence is information and is recorded as this exact string.
const NotSpecified = "Not specified"

// VitalSigns holds the measured vitals from the objective section.
// Values are free-text strings as dictated (e.g., "140/90 mmHg", "72 bpm")
// because clinicians dictate units and qualifiers inconsistently; the
// validation stage parses the numeric portion when range-checking.
type VitalSigns struct {
	BloodPressure    string `json:"blood_pressure"`
	HeartRate        string `json:"heart_rate"`
	Temperature      string `json:"temperature"`
	RespiratoryRate  string `json:"respiratory_rate"`
	OxygenSaturation string `json:"oxygen_saturation"`
	Weight           string `json:"weight"`
	Height           string `json:"height"`
	BMI              string `json:"bmi"`
}

// Subjective is the patient-reported portion of the record.
type Subjective struct {
	ChiefComplaint        string `json:"chief_complaint"`
	HistoryPresentIllness string `json:"history_present_illness"`
	ReviewOfSystems       string `json:"review_of_systems"`
	PastMedicalHistory    string `json:"past_medical_history"`
	Medications           string `json:"medications"`
	Allergies             string `json:"allergies"`
	SocialHistory         string `json:"social_history"`
	FamilyHistory         string `json:"family_history"`
}

// Objective is the clinician-observed portion of the record.
type Objective struct {
	VitalSigns          VitalSigns `json:"vital_signs"`
	PhysicalExamination string     `json:"physical_examination"`
	LaboratoryResults   string     `json:"laboratory_results"`
	ImagingResults      string     `json:"imaging_results"`
}

// Assessment is the diagnostic portion of the record.
type Assessment struct {
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	ICD10Codes            []string `json:"icd10_codes"`
	DifferentialDiagnoses []string `json:"differential_diagnoses"`
	ClinicalImpression    string   `json:"clinical_impression"`
}

// Plan is the treatment portion of the record.
type Plan struct {
	Medications      []string `json:"medications"`
	Procedures       []string `json:"procedures"`
	LaboratoryTests  []string `json:"laboratory_tests"`
	ImagingStudies   []string `json:"imaging_studies"`
	FollowUp         string   `json:"follow_up"`
	PatientEducation string   `json:"patient_education"`
	Referrals        []string `json:"referrals"`
}

// Document is one complete structured clinical record.
type Document struct {
	Subjective Subjective `json:"subjective"`
	Objective  Objective  `json:"objective"`
	Assessment Assessment `json:"assessment"`
	Plan       Plan       `json:"plan"`
}

// New returns a Document with every scalar field set to [NotSpecified] and
// every list field empty.
func New() *Document {
	d := &Document{}
	d.FillMissing()
	return d
}

// FillMissing replaces every empty or whitespace-only scalar field with
// [NotSpecified]. List fields are left alone; an empty list already means
// "nothing ordered". Calling it twice is a no-op.
func (d *Document) FillMissing() {
	d.WalkStrings(func(s *string) {
		if strings.TrimSpace(*s) == "" {
			*s = NotSpecified
		}
	})
}

// WalkStrings visits every scalar string field of the document in a fixed
// order, then every element of every list field. The callback receives a
// pointer so it can rewrite fields in place; the unmasking and verification
// stages rely on this to touch every piece of narrative text exactly once.
func (d *Document) WalkStrings(fn func(*string)) {
	s := &d.Subjective
	for _, p := range []*string{
		&s.ChiefComplaint, &s.HistoryPresentIllness, &s.ReviewOfSystems,
		&s.PastMedicalHistory, &s.Medications, &s.Allergies,
		&s.SocialHistory, &s.FamilyHistory,
	} {
		fn(p)
	}

	v := &d.Objective.VitalSigns
	for _, p := range []*string{
		&v.BloodPressure, &v.HeartRate, &v.Temperature, &v.RespiratoryRate,
		&v.OxygenSaturation, &v.Weight, &v.Height, &v.BMI,
	} {
		fn(p)
	}
	o := &d.Objective
	for _, p := range []*string{
		&o.PhysicalExamination, &o.LaboratoryResults, &o.ImagingResults,
	} {
		fn(p)
	}

	a := &d.Assessment
	fn(&a.PrimaryDiagnosis)
	fn(&a.ClinicalImpression)

	p := &d.Plan
	fn(&p.FollowUp)
	fn(&p.PatientEducation)

	for _, list := range [][]string{
		a.ICD10Codes, a.DifferentialDiagnoses,
		p.Medications, p.Procedures, p.LaboratoryTests, p.ImagingStudies, p.Referrals,
	} {
		for i := range list {
			fn(&list[i])
		}
	}
}

// CountFilled reports how many of the document's scalar fields carry real
// content versus the total number of scalar fields. A field counts as filled
// when it is non-empty and not [NotSpecified]. List fields do not contribute;
// an empty plan list is a legitimate complete state.
func (d *Document) CountFilled() (filled, total int) {
	scalars := d.scalarFields()
	for _, p := range scalars {
		if *p != "" && *p != NotSpecified {
			filled++
		}
	}
	return filled, len(scalars)
}

// scalarFields returns pointers to every scalar string field, excluding list
// elements.
func (d *Document) scalarFields() []*string {
	s := &d.Subjective
	v := &d.Objective.VitalSigns
	o := &d.Objective
	a := &d.Assessment
	p := &d.Plan
	return []*string{
		&s.ChiefComplaint, &s.HistoryPresentIllness, &s.ReviewOfSystems,
		&s.PastMedicalHistory, &s.Medications, &s.Allergies,
		&s.SocialHistory, &s.FamilyHistory,
		&v.BloodPressure, &v.HeartRate, &v.Temperature, &v.RespiratoryRate,
		&v.OxygenSaturation, &v.Weight, &v.Height, &v.BMI,
		&o.PhysicalExamination, &o.LaboratoryResults, &o.ImagingResults,
		&a.PrimaryDiagnosis, &a.ClinicalImpression,
		&p.FollowUp, &p.PatientEducation,
	}
}

// Text concatenates every string field into one blob, separated by newlines.
// Used by the scoring stage to scan the whole record for terminology.
func (d *Document) Text() string {
	var b strings.Builder
	d.WalkStrings(func(s *string) {
		if *s != "" && *s != NotSpecified {
			b.WriteString(*s)
			b.WriteByte('\n')
		}
	})
	return b.String()
}
