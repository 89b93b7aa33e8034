package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown assessment field")
	ErrFieldType    = errors.New("invalid value for assessment field")
)

// FieldKind is the Go shape of a VendorAssessment field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindBool    FieldKind = "bool"
	KindInt     FieldKind = "int"
	KindFloat   FieldKind = "float"
	KindStrings FieldKind = "strings"
)

type fieldRef struct {
	kind FieldKind
	get  func(a *VendorAssessment) any
	set  func(a *VendorAssessment, v any) error
}

func stringField(p func(a *VendorAssessment) *string) fieldRef {
	return fieldRef{
		kind: KindString,
		get:  func(a *VendorAssessment) any { return *p(a) },
		set: func(a *VendorAssessment, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			*p(a) = s
			return nil
		},
	}
}

func boolField(p func(a *VendorAssessment) *bool) fieldRef {
	return fieldRef{
		kind: KindBool,
		get:  func(a *VendorAssessment) any { return *p(a) },
		set: func(a *VendorAssessment, v any) error {
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*p(a) = b
			return nil
		},
	}
}

func intField(p func(a *VendorAssessment) **int) fieldRef {
	return fieldRef{
		kind: KindInt,
		get: func(a *VendorAssessment) any {
			if v := *p(a); v != nil {
				return *v
			}
			return nil
		},
		set: func(a *VendorAssessment, v any) error {
			f, ok, err := toFloat(v)
			if err != nil {
				return err
			}
			if !ok {
				*p(a) = nil
				return nil
			}
			if f != math.Trunc(f) {
				return fmt.Errorf("%w: %v is not a whole number", ErrFieldType, v)
			}
			if f < math.MinInt32 || f > math.MaxInt32 {
				return fmt.Errorf("%w: %v is out of range", ErrFieldType, v)
			}
			n := int(f)
			*p(a) = &n
			return nil
		},
	}
}

func floatField(p func(a *VendorAssessment) **float64) fieldRef {
	return fieldRef{
		kind: KindFloat,
		get: func(a *VendorAssessment) any {
			if v := *p(a); v != nil {
				return *v
			}
			return nil
		},
		set: func(a *VendorAssessment, v any) error {
			f, ok, err := toFloat(v)
			if err != nil {
				return err
			}
			if !ok {
				*p(a) = nil
				return nil
			}
			*p(a) = &f
			return nil
		},
	}
}

func stringsField(p func(a *VendorAssessment) *[]string) fieldRef {
	return fieldRef{
		kind: KindStrings,
		get:  func(a *VendorAssessment) any { return cloneStrings(*p(a)) },
		set: func(a *VendorAssessment, v any) error {
			ss, err := toStrings(v)
			if err != nil {
				return err
			}
			*p(a) = ss
			return nil
		},
	}
}

var assessmentFields = map[string]map[string]fieldRef{
	SectionBasicInfo: {
		"vendorName":   stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.VendorName }),
		"productName":  stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.ProductName }),
		"website":      stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.Website }),
		"contactName":  stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.ContactName }),
		"contactEmail": stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.ContactEmail }),
		"description":  stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.Description }),
		"category":     stringField(func(a *VendorAssessment) *string { return &a.BasicInfo.Category }),
	},
	SectionDataHandling: {
		"storesPII":            boolField(func(a *VendorAssessment) *bool { return &a.DataHandling.StoresPII }),
		"piiTypes":             stringsField(func(a *VendorAssessment) *[]string { return &a.DataHandling.PIITypes }),
		"encryptionAtRest":     boolField(func(a *VendorAssessment) *bool { return &a.DataHandling.EncryptionAtRest }),
		"encryptionInTransit":  boolField(func(a *VendorAssessment) *bool { return &a.DataHandling.EncryptionInTransit }),
		"dataRetentionDays":    intField(func(a *VendorAssessment) **int { return &a.DataHandling.DataRetentionDays }),
		"dataLocation":         stringField(func(a *VendorAssessment) *string { return &a.DataHandling.DataLocation }),
		"sharesWithThirdParty": boolField(func(a *VendorAssessment) *bool { return &a.DataHandling.SharesWithThirdParty }),
	},
	SectionAICapabilities: {
		"isAIService":      boolField(func(a *VendorAssessment) *bool { return &a.AICapabilities.IsAIService }),
		"aiFeatures":       stringsField(func(a *VendorAssessment) *[]string { return &a.AICapabilities.AIFeatures }),
		"modelProvider":    stringField(func(a *VendorAssessment) *string { return &a.AICapabilities.ModelProvider }),
		"trainsOnUserData": boolField(func(a *VendorAssessment) *bool { return &a.AICapabilities.TrainsOnUserData }),
		"humanOversight":   boolField(func(a *VendorAssessment) *bool { return &a.AICapabilities.HumanOversight }),
		"optOutAvailable":  boolField(func(a *VendorAssessment) *bool { return &a.AICapabilities.OptOutAvailable }),
	},
	SectionStudentData: {
		"handlesStudentData": boolField(func(a *VendorAssessment) *bool { return &a.StudentData.HandlesStudentData }),
		"minimumAge":         intField(func(a *VendorAssessment) **int { return &a.StudentData.MinimumAge }),
		"ageGate":            boolField(func(a *VendorAssessment) *bool { return &a.StudentData.AgeGate }),
		"parentalConsent":    boolField(func(a *VendorAssessment) *bool { return &a.StudentData.ParentalConsent }),
		"educationalPurpose": boolField(func(a *VendorAssessment) *bool { return &a.StudentData.EducationalPurpose }),
	},
	SectionCompliance: {
		"ferpaCompliant":          boolField(func(a *VendorAssessment) *bool { return &a.Compliance.FERPACompliant }),
		"coppaCompliant":          boolField(func(a *VendorAssessment) *bool { return &a.Compliance.COPPACompliant }),
		"dataProcessingAgreement": boolField(func(a *VendorAssessment) *bool { return &a.Compliance.DataProcessingAgreement }),
		"soc2Certified":           boolField(func(a *VendorAssessment) *bool { return &a.Compliance.SOC2Certified }),
		"privacyPolicyUrl":        stringField(func(a *VendorAssessment) *string { return &a.Compliance.PrivacyPolicyURL }),
		"statePrivacyPledge":      boolField(func(a *VendorAssessment) *bool { return &a.Compliance.StatePrivacyPledge }),
	},
	SectionTechnical: {
		"ssoSupport":           boolField(func(a *VendorAssessment) *bool { return &a.Technical.SSOSupport }),
		"ssoProviders":         stringsField(func(a *VendorAssessment) *[]string { return &a.Technical.SSOProviders }),
		"apiAvailable":         boolField(func(a *VendorAssessment) *bool { return &a.Technical.APIAvailable }),
		"uptimeSla":            floatField(func(a *VendorAssessment) **float64 { return &a.Technical.UptimeSLA }),
		"incidentResponsePlan": boolField(func(a *VendorAssessment) *bool { return &a.Technical.IncidentResponsePlan }),
		"breachNotifyHours":    intField(func(a *VendorAssessment) **int { return &a.Technical.BreachNotifyHours }),
	},
}

func lookupField(section, id string) (fieldRef, error) {
	fields, ok := assessmentFields[section]
	if !ok {
		return fieldRef{}, fmt.Errorf("%w: section %q", ErrUnknownField, section)
	}
	f, ok := fields[id]
	if !ok {
		return fieldRef{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, section, id)
	}
	return f, nil
}

// FieldKindOf reports the kind of section.id, or false when the field does
// not exist on VendorAssessment.
func FieldKindOf(section, id string) (FieldKind, bool) {
	f, err := lookupField(section, id)
	if err != nil {
		return "", false
	}
	return f.kind, true
}

// Get returns the current value of section.id. Unset numbers are nil.
func (a *VendorAssessment) Get(section, id string) (any, error) {
	f, err := lookupField(section, id)
	if err != nil {
		return nil, err
	}
	return f.get(a), nil
}

// Set coerces v (typically JSON-decoded) into the field's type and stores
// it. Unknown keys and mismatched types are rejected.
func (a *VendorAssessment) Set(section, id string, v any) error {
	f, err := lookupField(section, id)
	if err != nil {
		return err
	}
	if err := f.set(a, v); err != nil {
		return fmt.Errorf("%s.%s: %w", section, id, err)
	}
	return nil
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return "", fmt.Errorf("%w: want string, got %T", ErrFieldType, v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrFieldType, t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: want boolean, got %T", ErrFieldType, v)
	}
}

// toFloat returns ok=false for values that mean "unset" (nil, empty string).
func toFloat(v any) (float64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return t, true, nil
	case float32:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q is not a number", ErrFieldType, t)
		}
		return f, true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q is not a number", ErrFieldType, t)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%w: want number, got %T", ErrFieldType, v)
	}
}

func toStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return cloneStrings(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list item %T is not a string", ErrFieldType, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: want list of strings, got %T", ErrFieldType, v)
	}
}
