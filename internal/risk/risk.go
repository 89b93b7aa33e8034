// Package risk maps a vendor assessment to the compliance risks it exposes.
package risk

import (
	"strings"

	"ai_blueprint_backend/internal/model"
)

const (
	FlagNoAgeVerification   = "COPPA: users under 13 with no age verification"
	FlagNoParentalConsent   = "COPPA: users under 13 with no parental consent"
	FlagNonEducationalUse   = "FERPA: student data used for non-educational use"
	FlagMissingDPA          = "FERPA: missing DPA for student PII"
	FlagSensitiveNoConsent  = "PPRA: sensitive data without consent"
	FlagNotEncryptedAtRest  = "Security: PII not encrypted at rest"
	FlagNotEncryptedTransit = "Security: PII not encrypted in transit"
	FlagTrainsOnStudentData = "AI: training on student data without safeguards"
	coppaAgeThreshold       = 13
)

// SensitiveCategories are the PPRA protected-information keywords matched
// case-insensitively against the declared PII types.
var SensitiveCategories = []string{"psychological", "behavioral", "health"}

// Rule inspects an assessment and returns the flags it raises.
type Rule struct {
	Name  string
	Check func(a *model.VendorAssessment) []string
}

// Rules run in this order; the order only matters for deterministic output.
var Rules = []Rule{
	{Name: "coppa", Check: checkCOPPA},
	{Name: "ferpa", Check: checkFERPA},
	{Name: "ppra", Check: checkPPRA},
	{Name: "encryption", Check: checkEncryption},
	{Name: "ai_training", Check: checkAITraining},
}

// Evaluate returns every flag raised by the assessment. It never mutates
// its argument and returns the same flags for equal inputs.
func Evaluate(a *model.VendorAssessment) []string {
	flags := []string{}
	if a == nil {
		return flags
	}
	for _, r := range Rules {
		flags = append(flags, r.Check(a)...)
	}
	return flags
}

// EvaluateByRule is Evaluate keyed by rule name, used for metrics.
func EvaluateByRule(a *model.VendorAssessment) map[string][]string {
	out := make(map[string][]string, len(Rules))
	if a == nil {
		return out
	}
	for _, r := range Rules {
		if flags := r.Check(a); len(flags) > 0 {
			out[r.Name] = flags
		}
	}
	return out
}

func checkCOPPA(a *model.VendorAssessment) []string {
	sd := a.StudentData
	if sd.MinimumAge == nil || *sd.MinimumAge >= coppaAgeThreshold {
		return nil
	}
	var flags []string
	if !sd.AgeGate {
		flags = append(flags, FlagNoAgeVerification)
	}
	if !sd.ParentalConsent {
		flags = append(flags, FlagNoParentalConsent)
	}
	return flags
}

func checkFERPA(a *model.VendorAssessment) []string {
	if !a.StudentData.HandlesStudentData {
		return nil
	}
	var flags []string
	if !a.StudentData.EducationalPurpose {
		flags = append(flags, FlagNonEducationalUse)
	}
	if a.DataHandling.StoresPII && !a.Compliance.DataProcessingAgreement {
		flags = append(flags, FlagMissingDPA)
	}
	return flags
}

func checkPPRA(a *model.VendorAssessment) []string {
	if len(SensitivePIITypes(a.DataHandling.PIITypes)) == 0 || a.StudentData.ParentalConsent {
		return nil
	}
	return []string{FlagSensitiveNoConsent}
}

func checkEncryption(a *model.VendorAssessment) []string {
	dh := a.DataHandling
	if !dh.StoresPII {
		return nil
	}
	var flags []string
	if !dh.EncryptionAtRest {
		flags = append(flags, FlagNotEncryptedAtRest)
	}
	if !dh.EncryptionInTransit {
		flags = append(flags, FlagNotEncryptedTransit)
	}
	return flags
}

func checkAITraining(a *model.VendorAssessment) []string {
	ai := a.AICapabilities
	if ai.IsAIService && ai.TrainsOnUserData && a.StudentData.HandlesStudentData {
		return []string{FlagTrainsOnStudentData}
	}
	return nil
}

// SensitivePIITypes returns the PII types that fall under a PPRA
// protected category.
func SensitivePIITypes(piiTypes []string) []string {
	var out []string
	for _, t := range piiTypes {
		lower := strings.ToLower(t)
		for _, c := range SensitiveCategories {
			if strings.Contains(lower, c) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelOf buckets a flag set for watchlist display: none is low, one or two
// is medium, three or more is high.
func LevelOf(flags []string) Level {
	switch n := len(flags); {
	case n == 0:
		return LevelLow
	case n <= 2:
		return LevelMedium
	default:
		return LevelHigh
	}
}

var levelRank = map[Level]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}

// AtLeast reports whether l is as severe as min. Unknown levels rank below
// low.
func AtLeast(l, min Level) bool {
	r, ok := levelRank[l]
	if !ok {
		return false
	}
	m, ok := levelRank[min]
	if !ok {
		return false
	}
	return r >= m
}
