package questionnaire

import (
	"errors"
	"fmt"
	"regexp"
)

type QuestionType string

const (
	TypeText        QuestionType = "text"
	TypeEmail       QuestionType = "email"
	TypeURL         QuestionType = "url"
	TypeTextarea    QuestionType = "textarea"
	TypeNumber      QuestionType = "number"
	TypeBoolean     QuestionType = "boolean"
	TypeSelect      QuestionType = "select"
	TypeMultiselect QuestionType = "multiselect"
)

func (t QuestionType) valid() bool {
	switch t {
	case TypeText, TypeEmail, TypeURL, TypeTextarea, TypeNumber, TypeBoolean, TypeSelect, TypeMultiselect:
		return true
	}
	return false
}

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpLessThan    Operator = "less_than"
	OpGreaterThan Operator = "greater_than"
	OpContains    Operator = "contains"
)

type ActionType string

const (
	ActionShow ActionType = "show"
	ActionHide ActionType = "hide"
)

type Validation struct {
	Min     *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Message string   `yaml:"message,omitempty" json:"message,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern, or nil when none is set. Only valid
// after Definition.Validate.
func (v *Validation) Regexp() *regexp.Regexp {
	if v == nil {
		return nil
	}
	return v.re
}

type Question struct {
	ID         string       `yaml:"id" json:"id"`
	Label      string       `yaml:"label" json:"label"`
	Type       QuestionType `yaml:"type" json:"type"`
	Required   bool         `yaml:"required,omitempty" json:"required"`
	Options    []string     `yaml:"options,omitempty" json:"options,omitempty"`
	Validation *Validation  `yaml:"validation,omitempty" json:"validation,omitempty"`
	RiskWeight *int         `yaml:"riskWeight,omitempty" json:"riskWeight,omitempty"`
	HelpText   string       `yaml:"helpText,omitempty" json:"helpText,omitempty"`
}

type Condition struct {
	QuestionID string   `yaml:"questionId" json:"questionId"`
	Operator   Operator `yaml:"operator" json:"operator"`
	Value      any      `yaml:"value" json:"value"`
}

type Action struct {
	Type    ActionType `yaml:"type" json:"type"`
	Targets []string   `yaml:"targets" json:"targets"`
}

type ConditionalRule struct {
	Condition Condition `yaml:"condition" json:"condition"`
	Action    Action    `yaml:"action" json:"action"`
}

type Section struct {
	Key         string            `yaml:"key" json:"key"`
	Title       string            `yaml:"title" json:"title"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Questions   []Question        `yaml:"questions" json:"questions"`
	Rules       []ConditionalRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Question looks a question up by id within the section.
func (s *Section) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// Definition is the versioned questionnaire schema. It is loaded once and
// treated as read-only afterwards.
type Definition struct {
	Version  string    `yaml:"version" json:"version"`
	Title    string    `yaml:"title" json:"title"`
	Sections []Section `yaml:"sections" json:"sections"`
}

// Section returns the section with the given key.
func (d *Definition) Section(key string) (*Section, int, bool) {
	for i := range d.Sections {
		if d.Sections[i].Key == key {
			return &d.Sections[i], i, true
		}
	}
	return nil, -1, false
}

var ErrInvalidDefinition = errors.New("invalid questionnaire definition")

// Validate checks the structural invariants of the definition and compiles
// validation patterns. Conditional rules may only reference questions of
// their own section.
func (d *Definition) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if d.Version == "" {
		fail("version is required")
	}
	if len(d.Sections) == 0 {
		fail("at least one section is required")
	}

	sectionKeys := make(map[string]bool, len(d.Sections))
	for si := range d.Sections {
		s := &d.Sections[si]
		if s.Key == "" {
			fail("section %d: key is required", si)
			continue
		}
		if sectionKeys[s.Key] {
			fail("section %q: duplicate key", s.Key)
		}
		sectionKeys[s.Key] = true

		ids := make(map[string]bool, len(s.Questions))
		for qi := range s.Questions {
			q := &s.Questions[qi]
			if q.ID == "" {
				fail("%s: question %d has no id", s.Key, qi)
				continue
			}
			if ids[q.ID] {
				fail("%s.%s: duplicate question id", s.Key, q.ID)
			}
			ids[q.ID] = true
			if !q.Type.valid() {
				fail("%s.%s: unknown question type %q", s.Key, q.ID, q.Type)
			}
			if (q.Type == TypeSelect || q.Type == TypeMultiselect) && len(q.Options) == 0 {
				fail("%s.%s: %s question needs options", s.Key, q.ID, q.Type)
			}
			if v := q.Validation; v != nil {
				if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
					fail("%s.%s: min greater than max", s.Key, q.ID)
				}
				if v.Pattern != "" {
					re, err := regexp.Compile(v.Pattern)
					if err != nil {
						fail("%s.%s: bad pattern: %v", s.Key, q.ID, err)
					} else {
						v.re = re
					}
				}
			}
		}

		for ri, r := range s.Rules {
			if !ids[r.Condition.QuestionID] {
				fail("%s rule %d: condition references %q outside the section", s.Key, ri, r.Condition.QuestionID)
			}
			if _, ok := operators[r.Condition.Operator]; !ok {
				fail("%s rule %d: unknown operator %q", s.Key, ri, r.Condition.Operator)
			}
			if r.Action.Type != ActionShow && r.Action.Type != ActionHide {
				fail("%s rule %d: unknown action %q", s.Key, ri, r.Action.Type)
			}
			if len(r.Action.Targets) == 0 {
				fail("%s rule %d: action has no targets", s.Key, ri)
			}
			for _, t := range r.Action.Targets {
				if !ids[t] {
					fail("%s rule %d: target %q outside the section", s.Key, ri, t)
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}
