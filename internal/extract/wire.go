package extract

import (
	"encoding/json"

	"github.com/DandaAkhilReddy/audicia/internal/soap"
)

// flexList unmarshals either a JSON array of strings or a bare string.
// Models occasionally collapse a single-item list into a plain string; the
// coercion keeps that from failing the whole parse.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*l = nil
		return nil
	}
	*l = []string{single}
	return nil
}

// wireDocument mirrors soap.Document with tolerant list fields. Unknown
// fields in the reply (models sometimes append metadata) are ignored.
type wireDocument struct {
	Subjective soap.Subjective `json:"subjective"`
	Objective  soap.Objective  `json:"objective"`
	Assessment struct {
		PrimaryDiagnosis      string   `json:"primary_diagnosis"`
		ICD10Codes            flexList `json:"icd10_codes"`
		DifferentialDiagnoses flexList `json:"differential_diagnoses"`
		ClinicalImpression    string   `json:"clinical_impression"`
	} `json:"assessment"`
	Plan struct {
		Medications      flexList `json:"medications"`
		Procedures       flexList `json:"procedures"`
		LaboratoryTests  flexList `json:"laboratory_tests"`
		ImagingStudies   flexList `json:"imaging_studies"`
		FollowUp         string   `json:"follow_up"`
		PatientEducation string   `json:"patient_education"`
		Referrals        flexList `json:"referrals"`
	} `json:"plan"`
}

func (w *wireDocument) toDocument() *soap.Document {
	return &soap.Document{
		Subjective: w.Subjective,
		Objective:  w.Objective,
		Assessment: soap.Assessment{
			PrimaryDiagnosis:      w.Assessment.PrimaryDiagnosis,
			ICD10Codes:            w.Assessment.ICD10Codes,
			DifferentialDiagnoses: w.Assessment.DifferentialDiagnoses,
			ClinicalImpression:    w.Assessment.ClinicalImpression,
		},
		Plan: soap.Plan{
			Medications:      w.Plan.Medications,
			Procedures:       w.Plan.Procedures,
			LaboratoryTests:  w.Plan.LaboratoryTests,
			ImagingStudies:   w.Plan.ImagingStudies,
			FollowUp:         w.Plan.FollowUp,
			PatientEducation: w.Plan.PatientEducation,
			Referrals:        w.Plan.Referrals,
		},
	}
}
