package model

import (
	"encoding/json"
	"time"
)

// Section keys of the vendor intake questionnaire. They match the JSON
// field names of VendorAssessment.
const (
	SectionBasicInfo      = "basicInfo"
	SectionDataHandling   = "dataHandling"
	SectionAICapabilities = "aiCapabilities"
	SectionStudentData    = "studentData"
	SectionCompliance     = "compliance"
	SectionTechnical      = "technical"
)

type BasicInfo struct {
	VendorName   string `json:"vendorName"`
	ProductName  string `json:"productName"`
	Website      string `json:"website"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	Description  string `json:"description"`
	Category     string `json:"category"`
}

type DataHandling struct {
	StoresPII            bool     `json:"storesPII"`
	PIITypes             []string `json:"piiTypes"`
	EncryptionAtRest     bool     `json:"encryptionAtRest"`
	EncryptionInTransit  bool     `json:"encryptionInTransit"`
	DataRetentionDays    *int     `json:"dataRetentionDays,omitempty"`
	DataLocation         string   `json:"dataLocation"`
	SharesWithThirdParty bool     `json:"sharesWithThirdParty"`
}

type AICapabilities struct {
	IsAIService      bool     `json:"isAIService"`
	AIFeatures       []string `json:"aiFeatures"`
	ModelProvider    string   `json:"modelProvider"`
	TrainsOnUserData bool     `json:"trainsOnUserData"`
	HumanOversight   bool     `json:"humanOversight"`
	OptOutAvailable  bool     `json:"optOutAvailable"`
}

type StudentData struct {
	HandlesStudentData bool `json:"handlesStudentData"`
	MinimumAge         *int `json:"minimumAge,omitempty"`
	AgeGate            bool `json:"ageGate"`
	ParentalConsent    bool `json:"parentalConsent"`
	EducationalPurpose bool `json:"educationalPurpose"`
}

type Compliance struct {
	FERPACompliant          bool   `json:"ferpaCompliant"`
	COPPACompliant          bool   `json:"coppaCompliant"`
	DataProcessingAgreement bool   `json:"dataProcessingAgreement"`
	SOC2Certified           bool   `json:"soc2Certified"`
	PrivacyPolicyURL        string `json:"privacyPolicyUrl"`
	StatePrivacyPledge      bool   `json:"statePrivacyPledge"`
}

type Technical struct {
	SSOSupport           bool     `json:"ssoSupport"`
	SSOProviders         []string `json:"ssoProviders"`
	APIAvailable         bool     `json:"apiAvailable"`
	UptimeSLA            *float64 `json:"uptimeSla,omitempty"`
	IncidentResponsePlan bool     `json:"incidentResponsePlan"`
	BreachNotifyHours    *int     `json:"breachNotifyHours,omitempty"`
}

// VendorAssessment is the record assembled by the intake form, one field
// group per questionnaire section.
type VendorAssessment struct {
	BasicInfo      BasicInfo      `json:"basicInfo"`
	DataHandling   DataHandling   `json:"dataHandling"`
	AICapabilities AICapabilities `json:"aiCapabilities"`
	StudentData    StudentData    `json:"studentData"`
	Compliance     Compliance     `json:"compliance"`
	Technical      Technical      `json:"technical"`
}

// NewVendorAssessment returns an empty, defaulted assessment.
func NewVendorAssessment() VendorAssessment {
	return VendorAssessment{
		DataHandling:   DataHandling{PIITypes: []string{}},
		AICapabilities: AICapabilities{AIFeatures: []string{}},
		Technical:      Technical{SSOProviders: []string{}},
	}
}

// Clone returns a deep copy; slices and pointer fields are not shared.
func (a VendorAssessment) Clone() VendorAssessment {
	c := a
	c.DataHandling.PIITypes = cloneStrings(a.DataHandling.PIITypes)
	c.DataHandling.DataRetentionDays = cloneInt(a.DataHandling.DataRetentionDays)
	c.AICapabilities.AIFeatures = cloneStrings(a.AICapabilities.AIFeatures)
	c.StudentData.MinimumAge = cloneInt(a.StudentData.MinimumAge)
	c.Technical.SSOProviders = cloneStrings(a.Technical.SSOProviders)
	c.Technical.BreachNotifyHours = cloneInt(a.Technical.BreachNotifyHours)
	if a.Technical.UptimeSLA != nil {
		v := *a.Technical.UptimeSLA
		c.Technical.UptimeSLA = &v
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type VendorStatus string

const (
	VendorPending  VendorStatus = "pending"
	VendorApproved VendorStatus = "approved"
	VendorRejected VendorStatus = "rejected"
)

// swagger:model VendorAssessmentRecord
type VendorAssessmentRecord struct {
	BaseModel
	InstitutionID        uint            `gorm:"index;not null" json:"institutionId"`
	SubmittedBy          uint            `gorm:"index" json:"submittedBy"`
	VendorName           string          `gorm:"size:255;not null" json:"vendorName"`
	ProductName          string          `gorm:"size:255" json:"productName"`
	Department           string          `gorm:"size:100;index" json:"department"`
	QuestionnaireVersion string          `gorm:"size:50" json:"questionnaireVersion"`
	Assessment           json.RawMessage `gorm:"type:text" json:"assessment"`
	RiskFlags            json.RawMessage `gorm:"type:text" json:"riskFlags"`
	FlagCount            int             `gorm:"default:0" json:"flagCount"`
	RiskLevel            string          `gorm:"size:20" json:"riskLevel"`
	Status               VendorStatus    `gorm:"size:20;default:'pending'" json:"status"`
	ReviewNotes          string          `gorm:"type:text" json:"reviewNotes"`
	RenewalDate          *time.Time      `json:"renewalDate,omitempty"`
	ReportURL            string          `gorm:"size:512" json:"reportUrl,omitempty"`
}

func (VendorAssessmentRecord) TableName() string {
	return "vendor_assessments"
}

// Decode unpacks the stored snapshot and flags.
func (r *VendorAssessmentRecord) Decode() (VendorAssessment, []string, error) {
	a := NewVendorAssessment()
	if len(r.Assessment) > 0 {
		if err := json.Unmarshal(r.Assessment, &a); err != nil {
			return a, nil, err
		}
	}
	var flags []string
	if len(r.RiskFlags) > 0 {
		if err := json.Unmarshal(r.RiskFlags, &flags); err != nil {
			return a, nil, err
		}
	}
	return a, flags, nil
}
