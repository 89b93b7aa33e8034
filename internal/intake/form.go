// Package intake drives the vendor intake questionnaire: section
// navigation, conditional visibility, validation and hand-off of the
// finished assessment to a sink. It performs no I/O of its own.
package intake

import (
	"context"

	"github.com/rotisserie/eris"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/questionnaire"
	"ai_blueprint_backend/internal/risk"
)

// Submission is the immutable snapshot handed to a Sink.
type Submission struct {
	Assessment           model.VendorAssessment `json:"assessment"`
	Flags                []string               `json:"flags"`
	QuestionnaireVersion string                 `json:"questionnaireVersion"`
}

// Sink persists a finished submission. ID assignment and timestamps are its
// concern.
type Sink interface {
	Submit(ctx context.Context, sub Submission) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sub Submission) error

func (fn SinkFunc) Submit(ctx context.Context, sub Submission) error { return fn(ctx, sub) }

// Evaluator computes risk flags for an assessment.
type Evaluator func(a *model.VendorAssessment) []string

type Option func(*Form)

// WithEvaluator replaces the risk evaluator, mainly for tests.
func WithEvaluator(fn Evaluator) Option {
	return func(f *Form) { f.evaluate = fn }
}

// Form owns one in-progress assessment. It is not safe for concurrent use;
// a draft belongs to a single session.
type Form struct {
	def        *questionnaire.Definition
	assessment model.VendorAssessment
	current    int
	errors     map[string]string
	flags      []string
	evaluate   Evaluator
}

// NewForm starts an empty draft. Every question in def must map onto a
// VendorAssessment field.
func NewForm(def *questionnaire.Definition, opts ...Option) (*Form, error) {
	if def == nil || len(def.Sections) == 0 {
		return nil, eris.New("intake: definition has no sections")
	}
	if err := CheckBindings(def); err != nil {
		return nil, err
	}
	f := &Form{
		def:        def,
		assessment: model.NewVendorAssessment(),
		errors:     make(map[string]string),
		evaluate:   risk.Evaluate,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.recompute()
	return f, nil
}

// CheckBindings verifies that every question of def has a backing field on
// VendorAssessment.
func CheckBindings(def *questionnaire.Definition) error {
	for _, s := range def.Sections {
		for _, q := range s.Questions {
			if _, ok := model.FieldKindOf(s.Key, q.ID); !ok {
				return eris.Wrapf(model.ErrUnknownField, "intake: question %s has no assessment field", FieldKey(s.Key, q.ID))
			}
		}
	}
	return nil
}

func (f *Form) Definition() *questionnaire.Definition { return f.def }

func (f *Form) CurrentIndex() int { return f.current }

func (f *Form) CurrentSection() *questionnaire.Section { return &f.def.Sections[f.current] }

func (f *Form) IsFirstSection() bool { return f.current == 0 }

func (f *Form) IsLastSection() bool { return f.current == len(f.def.Sections)-1 }

// Assessment returns a deep copy of the draft.
func (f *Form) Assessment() model.VendorAssessment { return f.assessment.Clone() }

// Errors returns a copy of the current validation errors.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Flags returns the currently active risk flags.
func (f *Form) Flags() []string {
	out := make([]string, len(f.flags))
	copy(out, f.flags)
	return out
}

// SetField stores a value, clears that field's error and recomputes the
// risk flags.
func (f *Form) SetField(sectionKey, questionID string, value any) error {
	s, _, ok := f.def.Section(sectionKey)
	if !ok {
		return eris.Wrapf(model.ErrUnknownField, "intake: section %q", sectionKey)
	}
	if _, ok := s.Question(questionID); !ok {
		return eris.Wrapf(model.ErrUnknownField, "intake: question %s", FieldKey(sectionKey, questionID))
	}
	if err := f.assessment.Set(sectionKey, questionID, value); err != nil {
		return err
	}
	delete(f.errors, FieldKey(sectionKey, questionID))
	f.recompute()
	return nil
}

// VisibleQuestions returns the questions of a section that are not hidden
// by its conditional rules given the current answers.
func (f *Form) VisibleQuestions(sectionKey string) []questionnaire.Question {
	s, _, ok := f.def.Section(sectionKey)
	if !ok {
		return nil
	}
	return s.VisibleQuestions(f.answerLookup(sectionKey))
}

// Next validates the current section and advances when it is clean. It
// reports whether the index moved; on the last section it never moves.
func (f *Form) Next() bool {
	if !f.validateInto(f.current) {
		return false
	}
	if f.IsLastSection() {
		return false
	}
	f.current++
	return true
}

// Previous moves back one section without validating.
func (f *Form) Previous() bool {
	if f.current == 0 {
		return false
	}
	f.current--
	return true
}

// Validate checks every section and replaces the error map with the result.
func (f *Form) Validate() bool {
	f.errors = make(map[string]string)
	ok := true
	for i := range f.def.Sections {
		if !f.validateInto(i) {
			ok = false
		}
	}
	return ok
}

// Submit validates every section, regardless of the current position, and
// hands a snapshot to the sink. If the sink fails the draft is left exactly
// as it was so the caller can retry.
func (f *Form) Submit(ctx context.Context, sink Sink) (Submission, error) {
	if !f.Validate() {
		return Submission{}, &ValidationError{Fields: f.Errors()}
	}
	sub := Submission{
		Assessment:           f.assessment.Clone(),
		Flags:                f.Flags(),
		QuestionnaireVersion: f.def.Version,
	}
	if err := sink.Submit(ctx, sub); err != nil {
		return Submission{}, eris.Wrap(err, "intake: submit")
	}
	return sub, nil
}

// Reset discards the draft and starts a new one at the first section.
func (f *Form) Reset() {
	f.assessment = model.NewVendorAssessment()
	f.current = 0
	f.errors = make(map[string]string)
	f.recompute()
}

// validateInto re-validates one section, replacing its entries in the
// error map. It reports whether the section is clean.
func (f *Form) validateInto(index int) bool {
	s := &f.def.Sections[index]
	for _, q := range s.Questions {
		delete(f.errors, FieldKey(s.Key, q.ID))
	}
	ok := true
	for _, q := range s.VisibleQuestions(f.answerLookup(s.Key)) {
		value, _ := f.assessment.Get(s.Key, q.ID)
		if msg := validateAnswer(q, value); msg != "" {
			f.errors[FieldKey(s.Key, q.ID)] = msg
			ok = false
		}
	}
	return ok
}

func (f *Form) answerLookup(sectionKey string) func(string) any {
	return func(questionID string) any {
		v, err := f.assessment.Get(sectionKey, questionID)
		if err != nil {
			return nil
		}
		return v
	}
}

func (f *Form) recompute() {
	a := f.assessment.Clone()
	f.flags = f.evaluate(&a)
	if f.flags == nil {
		f.flags = []string{}
	}
}

// Draft is the serialisable state of a form.
type Draft struct {
	Assessment           model.VendorAssessment `json:"assessment"`
	CurrentSection       int                    `json:"currentSection"`
	Errors               map[string]string      `json:"errors,omitempty"`
	QuestionnaireVersion string                 `json:"questionnaireVersion"`
}

// Draft captures the form state for storage between requests.
func (f *Form) Draft() Draft {
	return Draft{
		Assessment:           f.assessment.Clone(),
		CurrentSection:       f.current,
		Errors:               f.Errors(),
		QuestionnaireVersion: f.def.Version,
	}
}

// Restore rebuilds a form from a stored draft. Flags are recomputed rather
// than trusted from storage.
func Restore(def *questionnaire.Definition, d Draft, opts ...Option) (*Form, error) {
	f, err := NewForm(def, opts...)
	if err != nil {
		return nil, err
	}
	if d.CurrentSection < 0 || d.CurrentSection >= len(def.Sections) {
		return nil, eris.Errorf("intake: draft section %d out of range", d.CurrentSection)
	}
	f.assessment = d.Assessment.Clone()
	f.current = d.CurrentSection
	for k, v := range d.Errors {
		f.errors[k] = v
	}
	f.recompute()
	return f, nil
}
