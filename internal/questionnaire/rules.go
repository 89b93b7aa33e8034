package questionnaire

import (
	"reflect"
	"strings"
)

// operatorFunc compares a current answer against a rule's expected value.
type operatorFunc func(actual, expected any) bool

var operators = map[Operator]operatorFunc{
	OpEquals:      equals,
	OpNotEquals:   func(a, e any) bool { return !equals(a, e) },
	OpLessThan:    func(a, e any) bool { return compareNumbers(a, e, func(x, y float64) bool { return x < y }) },
	OpGreaterThan: func(a, e any) bool { return compareNumbers(a, e, func(x, y float64) bool { return x > y }) },
	OpContains:    contains,
}

// Holds reports whether the condition is true for the given answer.
// Unknown operators never hold.
func (c Condition) Holds(answer any) bool {
	op, ok := operators[c.Operator]
	if !ok {
		return false
	}
	return op(answer, c.Value)
}

// HiddenQuestions evaluates the section's rules against answers and returns
// the ids of questions hidden by a rule whose condition holds. Show rules
// are accepted but have no effect.
func (s *Section) HiddenQuestions(answer func(questionID string) any) map[string]bool {
	hidden := make(map[string]bool)
	for _, q := range s.Questions {
		for _, r := range s.Rules {
			if r.Action.Type != ActionHide || !targets(r, q.ID) {
				continue
			}
			if r.Condition.Holds(answer(r.Condition.QuestionID)) {
				hidden[q.ID] = true
				break
			}
		}
	}
	return hidden
}

// VisibleQuestions returns the section's questions minus the hidden ones,
// in definition order.
func (s *Section) VisibleQuestions(answer func(questionID string) any) []Question {
	hidden := s.HiddenQuestions(answer)
	out := make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if !hidden[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

func targets(r ConditionalRule, id string) bool {
	for _, t := range r.Action.Targets {
		if t == id {
			return true
		}
	}
	return false
}

func equals(actual, expected any) bool {
	if a, ok := toNumber(actual); ok {
		if e, ok := toNumber(expected); ok {
			return a == e
		}
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

func compareNumbers(actual, expected any, cmp func(a, e float64) bool) bool {
	a, ok := toNumber(actual)
	if !ok {
		return false
	}
	e, ok := toNumber(expected)
	if !ok {
		return false
	}
	return cmp(a, e)
}

func contains(actual, expected any) bool {
	switch a := actual.(type) {
	case string:
		e, ok := expected.(string)
		return ok && strings.Contains(a, e)
	case []string:
		for _, item := range a {
			if equals(item, expected) {
				return true
			}
		}
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
