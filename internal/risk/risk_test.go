package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/model"
)

func intPtr(v int) *int { return &v }

func TestEvaluate_EmptyAssessmentHasNoFlags(t *testing.T) {
	a := model.NewVendorAssessment()
	flags := Evaluate(&a)
	require.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestEvaluate_NilAssessment(t *testing.T) {
	assert.Empty(t, Evaluate(nil))
	assert.Empty(t, EvaluateByRule(nil))
}

func TestEvaluate_COPPAUnder13WithoutPII(t *testing.T) {
	a := model.NewVendorAssessment()
	a.StudentData = model.StudentData{
		MinimumAge:         intPtr(10),
		AgeGate:            false,
		ParentalConsent:    false,
		HandlesStudentData: true,
		EducationalPurpose: true,
	}

	flags := Evaluate(&a)

	assert.Contains(t, flags, FlagNoAgeVerification)
	assert.Contains(t, flags, FlagNoParentalConsent)
	assert.NotContains(t, flags, FlagMissingDPA)
	assert.NotContains(t, flags, FlagNonEducationalUse)
}

func TestEvaluate_COPPAFlagsAreIndependent(t *testing.T) {
	a := model.NewVendorAssessment()
	a.StudentData.MinimumAge = intPtr(8)
	a.StudentData.AgeGate = true

	flags := Evaluate(&a)
	assert.Equal(t, []string{FlagNoParentalConsent}, flags)

	a.StudentData.AgeGate = false
	a.StudentData.ParentalConsent = true
	flags = Evaluate(&a)
	assert.Equal(t, []string{FlagNoAgeVerification}, flags)
}

func TestEvaluate_COPPAThreshold(t *testing.T) {
	tests := []struct {
		name string
		age  *int
		want int
	}{
		{"unset age", nil, 0},
		{"twelve", intPtr(12), 2},
		{"thirteen", intPtr(13), 0},
		{"adult", intPtr(18), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := model.NewVendorAssessment()
			a.StudentData.MinimumAge = tt.age
			assert.Len(t, Evaluate(&a), tt.want)
		})
	}
}

func TestEvaluate_FERPA(t *testing.T) {
	a := model.NewVendorAssessment()
	a.StudentData.HandlesStudentData = true
	a.DataHandling.StoresPII = true
	a.DataHandling.EncryptionAtRest = true
	a.DataHandling.EncryptionInTransit = true

	flags := Evaluate(&a)
	assert.Equal(t, []string{FlagNonEducationalUse, FlagMissingDPA}, flags)

	a.Compliance.DataProcessingAgreement = true
	a.StudentData.EducationalPurpose = true
	assert.Empty(t, Evaluate(&a))
}

func TestEvaluate_FERPARequiresStudentData(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.StoresPII = true
	a.DataHandling.EncryptionAtRest = true
	a.DataHandling.EncryptionInTransit = true

	assert.Empty(t, Evaluate(&a))
}

func TestEvaluate_PPRAIsCaseInsensitive(t *testing.T) {
	for _, pii := range []string{"Behavioral Assessment Data", "PSYCHOLOGICAL evaluations", "mental health notes"} {
		t.Run(pii, func(t *testing.T) {
			a := model.NewVendorAssessment()
			a.DataHandling.PIITypes = []string{pii}
			a.StudentData.ParentalConsent = false

			assert.Contains(t, Evaluate(&a), FlagSensitiveNoConsent)
		})
	}
}

func TestEvaluate_PPRASuppressedByConsent(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.PIITypes = []string{"Health Records"}
	a.StudentData.ParentalConsent = true

	assert.NotContains(t, Evaluate(&a), FlagSensitiveNoConsent)
}

func TestEvaluate_PPRAIgnoresOrdinaryPII(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.PIITypes = []string{"Name", "Email Address"}

	assert.Empty(t, Evaluate(&a))
}

func TestEvaluate_EncryptionInTransitOnly(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.StoresPII = true
	a.DataHandling.EncryptionAtRest = true
	a.DataHandling.EncryptionInTransit = false

	assert.Equal(t, []string{FlagNotEncryptedTransit}, Evaluate(&a))
}

func TestEvaluate_EncryptionIgnoredWithoutPII(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.StoresPII = false

	assert.Empty(t, Evaluate(&a))
}

func TestEvaluate_AITraining(t *testing.T) {
	a := model.NewVendorAssessment()
	a.AICapabilities.IsAIService = true
	a.AICapabilities.TrainsOnUserData = true
	a.StudentData.HandlesStudentData = true
	a.StudentData.EducationalPurpose = true

	assert.Equal(t, []string{FlagTrainsOnStudentData}, Evaluate(&a))

	a.StudentData.HandlesStudentData = false
	assert.Empty(t, Evaluate(&a))
}

func TestEvaluate_DeterministicAndPure(t *testing.T) {
	build := func() model.VendorAssessment {
		a := model.NewVendorAssessment()
		a.DataHandling.StoresPII = true
		a.DataHandling.PIITypes = []string{"Behavioral Assessment Data", "Name"}
		a.StudentData.HandlesStudentData = true
		a.StudentData.MinimumAge = intPtr(9)
		a.AICapabilities.IsAIService = true
		a.AICapabilities.TrainsOnUserData = true
		return a
	}

	a := build()
	b := build()
	before := a.Clone()

	first := Evaluate(&a)
	second := Evaluate(&b)

	assert.Equal(t, first, second)
	assert.Equal(t, first, Evaluate(&a))
	assert.Equal(t, before, a, "evaluate must not mutate its input")
	assert.Equal(t, []string{
		FlagNoAgeVerification,
		FlagNoParentalConsent,
		FlagNonEducationalUse,
		FlagMissingDPA,
		FlagSensitiveNoConsent,
		FlagNotEncryptedAtRest,
		FlagNotEncryptedTransit,
		FlagTrainsOnStudentData,
	}, first)
}

func TestEvaluateByRule(t *testing.T) {
	a := model.NewVendorAssessment()
	a.DataHandling.StoresPII = true

	byRule := EvaluateByRule(&a)
	assert.Equal(t, map[string][]string{
		"encryption": {FlagNotEncryptedAtRest, FlagNotEncryptedTransit},
	}, byRule)
}

func TestSensitivePIITypes(t *testing.T) {
	got := SensitivePIITypes([]string{"Name", "Health Records", "behavioral logs"})
	assert.Equal(t, []string{"Health Records", "behavioral logs"}, got)
	assert.Empty(t, SensitivePIITypes(nil))
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, LevelLow, LevelOf(nil))
	assert.Equal(t, LevelMedium, LevelOf([]string{"a"}))
	assert.Equal(t, LevelMedium, LevelOf([]string{"a", "b"}))
	assert.Equal(t, LevelHigh, LevelOf([]string{"a", "b", "c"}))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast(LevelHigh, LevelHigh))
	assert.True(t, AtLeast(LevelHigh, LevelMedium))
	assert.False(t, AtLeast(LevelMedium, LevelHigh))
	assert.True(t, AtLeast(LevelLow, LevelLow))
	assert.False(t, AtLeast(Level("severe"), LevelLow))
	assert.False(t, AtLeast(LevelHigh, Level("severe")))
}
