// Package validate checks the structured fields of a clinical record:
// diagnosis code formats, medication dosage strings, and vital-sign ranges.
//
// Validation is a pure in-memory pass with no external calls. Findings are
// accumulated as [Issue] values rather than errors because most of them are
// advisory. The document is annotated in place; physician-stated narrative
// content is never deleted, only malformed coded entries are removed so that
// downstream systems never see an invalid code.
//
// Running the validator twice over an already-validated document yields the
// same document and the same issue list.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/DandaAkhilReddy/audicia/internal/soap"
)

// VerifyMarker is appended to a vital-sign value that parsed as numeric but
// fell outside the accepted clinical range. The value itself is preserved;
// the marker asks a human to confirm it.
const VerifyMarker = " [verify: out of expected range]"

// Kind classifies a validation finding.
type Kind string

const (
	KindFormatInvalid Kind = "format-invalid"
	KindOutOfRange    Kind = "out-of-range"
)

// Severity indicates how a finding was handled.
type Severity string

const (
	// SeverityWarning marks annotated-but-preserved content.
	SeverityWarning Severity = "warning"
	// SeverityReject marks entries removed from the document.
	SeverityReject Severity = "reject"
)

// Issue is one validation finding. Issues are never silently dropped; the
// full ordered list travels with the final pipeline result.
type Issue struct {
	// FieldPath locates the finding, e.g. "objective.vital_signs.heart_rate"
	// or "plan.medications[2]".
	FieldPath string   `json:"field_path"`
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	// Detail is a short human-readable description of the finding.
	Detail string `json:"detail"`
}

// icd10Re matches the structural ICD-10 shape: one letter, two digits,
// optionally a dot and one to three more digits. Semantic code existence is
// out of scope.
var icd10Re = regexp.MustCompile(`^[A-Za-z]\d{2}(\.\d{1,3})?$`)

// dosageUnits are the tokens a plan medication entry must carry to be
// accepted. Matched case-insensitively as substrings.
var dosageUnits = []string{"mg", "mcg", "g", "ml", "units", "tabs", "caps"}

// vitalRange is the accepted numeric window for one vital sign.
type vitalRange struct {
	min, max float64
}

var (
	rangeHeartRate   = vitalRange{40, 200}
	rangeSystolic    = vitalRange{70, 250}
	rangeDiastolic   = vitalRange{40, 150}
	rangeTemperature = vitalRange{95.0, 108.0}
	rangeRespRate    = vitalRange{8, 50}
	rangeSpO2        = vitalRange{70, 100}
)

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Validate checks doc in place and returns the ordered findings. It never
// fails; every outcome is expressed in the issue list.
func Validate(doc *soap.Document) []Issue {
	var issues []Issue
	issues = append(issues, validateICD10(doc)...)
	issues = append(issues, validateMedications(doc)...)
	issues = append(issues, validateVitals(doc)...)
	return issues
}

// validateICD10 removes malformed codes from the assessment. Downstream
// coding systems must never receive a structurally invalid code, so removal
// (with a reject issue) is the only safe outcome.
func validateICD10(doc *soap.Document) []Issue {
	var issues []Issue
	kept := doc.Assessment.ICD10Codes[:0]
	for i, code := range doc.Assessment.ICD10Codes {
		if icd10Re.MatchString(strings.TrimSpace(code)) {
			kept = append(kept, code)
			continue
		}
		issues = append(issues, Issue{
			FieldPath: fmt.Sprintf("assessment.icd10_codes[%d]", i),
			Kind:      KindFormatInvalid,
			Severity:  SeverityReject,
			Detail:    fmt.Sprintf("removed malformed ICD-10 code %q", code),
		})
	}
	doc.Assessment.ICD10Codes = kept
	return issues
}

// validateMedications drops plan entries that carry no recognizable dosage
// unit. A drug name with no dose is not an actionable order.
func validateMedications(doc *soap.Document) []Issue {
	var issues []Issue
	kept := doc.Plan.Medications[:0]
	for i, med := range doc.Plan.Medications {
		if hasDosageUnit(med) {
			kept = append(kept, med)
			continue
		}
		issues = append(issues, Issue{
			FieldPath: fmt.Sprintf("plan.medications[%d]", i),
			Kind:      KindFormatInvalid,
			Severity:  SeverityReject,
			Detail:    fmt.Sprintf("removed medication entry %q: no dosage unit", med),
		})
	}
	doc.Plan.Medications = kept
	return issues
}

func hasDosageUnit(med string) bool {
	lower := strings.ToLower(med)
	for _, unit := range dosageUnits {
		if strings.Contains(lower, unit) {
			return true
		}
	}
	return false
}

// validateVitals range-checks each named vital. Out-of-range values are kept
// and annotated with [VerifyMarker]; a value with no parseable number (the
// sentinel included) is left untouched and raises no issue.
func validateVitals(doc *soap.Document) []Issue {
	var issues []Issue
	v := &doc.Objective.VitalSigns

	issues = append(issues, checkVital(&v.HeartRate,
		"objective.vital_signs.heart_rate", rangeHeartRate, "bpm")...)
	issues = append(issues, checkBloodPressure(&v.BloodPressure)...)
	issues = append(issues, checkVital(&v.Temperature,
		"objective.vital_signs.temperature", rangeTemperature, "°F")...)
	issues = append(issues, checkVital(&v.RespiratoryRate,
		"objective.vital_signs.respiratory_rate", rangeRespRate, "/min")...)
	issues = append(issues, checkVital(&v.OxygenSaturation,
		"objective.vital_signs.oxygen_saturation", rangeSpO2, "%")...)

	return issues
}

// checkVital parses the first number in the field and compares it against r.
func checkVital(field *string, path string, r vitalRange, unit string) []Issue {
	val, ok := firstNumber(*field)
	if !ok {
		return nil
	}
	if val >= r.min && val <= r.max {
		return nil
	}
	annotate(field)
	return []Issue{{
		FieldPath: path,
		Kind:      KindOutOfRange,
		Severity:  SeverityWarning,
		Detail: fmt.Sprintf("value %g outside expected range %g-%g %s",
			val, r.min, r.max, unit),
	}}
}

// checkBloodPressure reads the systolic and diastolic components from the
// combined field ("140/90"). With only one number present, it is treated as
// systolic.
func checkBloodPressure(field *string) []Issue {
	const path = "objective.vital_signs.blood_pressure"

	nums := numberRe.FindAllString(stripMarker(*field), 2)
	if len(nums) == 0 {
		return nil
	}

	var issues []Issue
	sys, _ := strconv.ParseFloat(nums[0], 64)
	if sys < rangeSystolic.min || sys > rangeSystolic.max {
		issues = append(issues, Issue{
			FieldPath: path,
			Kind:      KindOutOfRange,
			Severity:  SeverityWarning,
			Detail: fmt.Sprintf("systolic %g outside expected range %g-%g mmHg",
				sys, rangeSystolic.min, rangeSystolic.max),
		})
	}
	if len(nums) == 2 {
		dia, _ := strconv.ParseFloat(nums[1], 64)
		if dia < rangeDiastolic.min || dia > rangeDiastolic.max {
			issues = append(issues, Issue{
				FieldPath: path,
				Kind:      KindOutOfRange,
				Severity:  SeverityWarning,
				Detail: fmt.Sprintf("diastolic %g outside expected range %g-%g mmHg",
					dia, rangeDiastolic.min, rangeDiastolic.max),
			})
		}
	}
	if len(issues) > 0 {
		annotate(field)
	}
	return issues
}

// firstNumber extracts the leading numeric component of a dictated vital
// string, ignoring any verification marker from a previous pass.
func firstNumber(s string) (float64, bool) {
	m := numberRe.FindString(stripMarker(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// annotate appends the verification marker exactly once.
func annotate(field *string) {
	if !strings.Contains(*field, VerifyMarker) {
		*field += VerifyMarker
	}
}

func stripMarker(s string) string {
	return strings.ReplaceAll(s, VerifyMarker, "")
}
