package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorAssessment_SetAndGet(t *testing.T) {
	a := NewVendorAssessment()

	require.NoError(t, a.Set(SectionBasicInfo, "vendorName", "Acme Learning"))
	require.NoError(t, a.Set(SectionDataHandling, "storesPII", true))
	require.NoError(t, a.Set(SectionDataHandling, "piiTypes", []any{"Name", "Grades"}))
	require.NoError(t, a.Set(SectionStudentData, "minimumAge", float64(10)))
	require.NoError(t, a.Set(SectionTechnical, "uptimeSla", "99.9"))

	assert.Equal(t, "Acme Learning", a.BasicInfo.VendorName)
	assert.True(t, a.DataHandling.StoresPII)
	assert.Equal(t, []string{"Name", "Grades"}, a.DataHandling.PIITypes)
	require.NotNil(t, a.StudentData.MinimumAge)
	assert.Equal(t, 10, *a.StudentData.MinimumAge)
	require.NotNil(t, a.Technical.UptimeSLA)
	assert.InDelta(t, 99.9, *a.Technical.UptimeSLA, 1e-9)

	v, err := a.Get(SectionStudentData, "minimumAge")
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = a.Get(SectionDataHandling, "dataRetentionDays")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestVendorAssessment_ClearNumber(t *testing.T) {
	a := NewVendorAssessment()
	require.NoError(t, a.Set(SectionStudentData, "minimumAge", 12))
	require.NoError(t, a.Set(SectionStudentData, "minimumAge", ""))
	assert.Nil(t, a.StudentData.MinimumAge)
}

func TestVendorAssessment_RejectsUnknownKeys(t *testing.T) {
	a := NewVendorAssessment()

	err := a.Set("pricing", "cost", 10)
	assert.ErrorIs(t, err, ErrUnknownField)

	err = a.Set(SectionBasicInfo, "favouriteColour", "blue")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = a.Get(SectionBasicInfo, "favouriteColour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestVendorAssessment_RejectsWrongTypes(t *testing.T) {
	tests := []struct {
		section, id string
		value       any
	}{
		{SectionBasicInfo, "vendorName", 42},
		{SectionDataHandling, "storesPII", "maybe"},
		{SectionDataHandling, "piiTypes", "Name"},
		{SectionDataHandling, "piiTypes", []any{"Name", 3}},
		{SectionStudentData, "minimumAge", 12.5},
		{SectionStudentData, "minimumAge", "twelve"},
		{SectionStudentData, "minimumAge", 1e19},
		{SectionStudentData, "minimumAge", -3e9},
		{SectionDataHandling, "dataRetentionDays", math.Inf(1)},
		{SectionTechnical, "uptimeSla", true},
	}
	for _, tt := range tests {
		t.Run(tt.section+"."+tt.id, func(t *testing.T) {
			a := NewVendorAssessment()
			err := a.Set(tt.section, tt.id, tt.value)
			assert.ErrorIs(t, err, ErrFieldType)
		})
	}
}

func TestVendorAssessment_CloneIsDeep(t *testing.T) {
	a := NewVendorAssessment()
	require.NoError(t, a.Set(SectionDataHandling, "piiTypes", []string{"Name"}))
	require.NoError(t, a.Set(SectionStudentData, "minimumAge", 9))

	c := a.Clone()
	c.DataHandling.PIITypes[0] = "Changed"
	*c.StudentData.MinimumAge = 40

	assert.Equal(t, "Name", a.DataHandling.PIITypes[0])
	assert.Equal(t, 9, *a.StudentData.MinimumAge)
}

func TestFieldKindOf(t *testing.T) {
	k, ok := FieldKindOf(SectionAICapabilities, "aiFeatures")
	assert.True(t, ok)
	assert.Equal(t, KindStrings, k)

	_, ok = FieldKindOf(SectionAICapabilities, "nope")
	assert.False(t, ok)
}

func TestVendorAssessmentRecord_Decode(t *testing.T) {
	a := NewVendorAssessment()
	a.BasicInfo.VendorName = "Acme"
	raw, err := json.Marshal(a)
	require.NoError(t, err)

	rec := &VendorAssessmentRecord{Assessment: raw, RiskFlags: json.RawMessage(`["x"]`)}
	got, flags, err := rec.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.BasicInfo.VendorName)
	assert.Equal(t, []string{"x"}, flags)
}
