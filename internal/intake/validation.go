package intake

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"ai_blueprint_backend/internal/questionnaire"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("intake: validation failed")

// ValidationError carries field messages keyed "section.questionId".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("intake: validation failed for %s", strings.Join(keys, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldKey is the error-map key for a question.
func FieldKey(sectionKey, questionID string) string {
	return sectionKey + "." + questionID
}

var formats = validator.New()

// validateAnswer returns an empty string when the answer is acceptable.
func validateAnswer(q questionnaire.Question, value any) string {
	if isEmpty(value) {
		if q.Required {
			return fmt.Sprintf("%s is required", q.Label)
		}
		return ""
	}

	switch q.Type {
	case questionnaire.TypeEmail:
		if s, ok := value.(string); ok && formats.Var(strings.TrimSpace(s), "email") != nil {
			return fmt.Sprintf("%s must be a valid email address", q.Label)
		}
	case questionnaire.TypeURL:
		if s, ok := value.(string); ok && formats.Var(strings.TrimSpace(s), "url") != nil {
			return fmt.Sprintf("%s must be a valid URL", q.Label)
		}
	case questionnaire.TypeSelect:
		if s, ok := value.(string); ok && !contains(q.Options, s) {
			return fmt.Sprintf("%s has an invalid option", q.Label)
		}
	case questionnaire.TypeMultiselect:
		if ss, ok := value.([]string); ok {
			for _, s := range ss {
				if !contains(q.Options, s) {
					return fmt.Sprintf("%s has an invalid option", q.Label)
				}
			}
		}
	}

	v := q.Validation
	if v == nil {
		return ""
	}
	if n, ok := number(value); ok {
		if v.Min != nil && n < *v.Min {
			return orDefault(v.Message, fmt.Sprintf("%s must be at least %g", q.Label, *v.Min))
		}
		if v.Max != nil && n > *v.Max {
			return orDefault(v.Message, fmt.Sprintf("%s must be at most %g", q.Label, *v.Max))
		}
	}
	if re := v.Regexp(); re != nil {
		if s, ok := value.(string); ok && !re.MatchString(s) {
			return orDefault(v.Message, fmt.Sprintf("%s is not in the expected format", q.Label))
		}
	}
	return ""
}

// isEmpty treats booleans as always answered; a yes/no toggle has a value.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	}
	return false
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
