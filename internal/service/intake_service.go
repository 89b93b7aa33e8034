package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/intake"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/questionnaire"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/risk"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
	"ai_blueprint_backend/pkg/monitoring"
	"ai_blueprint_backend/pkg/tracing"
)

// DraftStore keeps intake drafts between requests.
type DraftStore interface {
	Save(ctx context.Context, d *repository.StoredDraft, ttl time.Duration) error
	Get(ctx context.Context, id string) (*repository.StoredDraft, error)
	Delete(ctx context.Context, id string) error
}

// AssessmentWriter persists submitted assessments.
type AssessmentWriter interface {
	Create(ctx context.Context, rec *model.VendorAssessmentRecord) error
}

type InstitutionFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Institution, error)
}

// CacheInvalidator drops cached dashboards for an institution.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, institutionID uint) error
}

// Actor identifies who is calling; drafts are visible only to the user and
// institution that started them.
type Actor struct {
	UserID        uint
	InstitutionID uint
}

func ActorFromClaims(c *util.Claims) Actor {
	return Actor{UserID: c.UserID, InstitutionID: c.InstitutionID}
}

// FieldUpdate is one answer sent by the client.
type FieldUpdate struct {
	Section    string      `json:"section" binding:"required"`
	QuestionID string      `json:"questionId" binding:"required"`
	Value      interface{} `json:"value"`
}

// SectionView is a section as the client should render it right now.
type SectionView struct {
	Key         string                   `json:"key"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	Questions   []questionnaire.Question `json:"questions"`
}

// DraftView is the response shape for every draft operation.
type DraftView struct {
	ID                   string                 `json:"id"`
	QuestionnaireVersion string                 `json:"questionnaireVersion"`
	CurrentSection       int                    `json:"currentSection"`
	TotalSections        int                    `json:"totalSections"`
	IsFirstSection       bool                   `json:"isFirstSection"`
	IsLastSection        bool                   `json:"isLastSection"`
	Section              SectionView            `json:"section"`
	Assessment           model.VendorAssessment `json:"assessment"`
	Errors               map[string]string      `json:"errors"`
	Flags                []string               `json:"flags"`
	Moved                *bool                  `json:"moved,omitempty"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// EvaluateResult is returned by the stateless evaluation endpoint.
type EvaluateResult struct {
	Flags     []string            `json:"flags"`
	ByRule    map[string][]string `json:"byRule"`
	RiskLevel risk.Level          `json:"riskLevel"`
}

type IntakeService struct {
	Drafts       DraftStore
	Assessments  AssessmentWriter
	Institutions InstitutionFinder
	Notifier     Notifier
	Cache        CacheInvalidator
	Settings     *intakeSettings

	definition atomic.Pointer[questionnaire.Definition]
}

// intakeSettings is the slice of application config the intake service reads.
type intakeSettings struct {
	DraftTTL        time.Duration
	FallbackWebhook string
	HighRiskLevel   risk.Level
}

func NewIntakeService(
	def *questionnaire.Definition,
	drafts DraftStore,
	assessments AssessmentWriter,
	institutions InstitutionFinder,
	notifier Notifier,
	cache CacheInvalidator,
	draftTTL time.Duration,
	fallbackWebhook string,
	highRiskLevel string,
) (*IntakeService, error) {
	s := &IntakeService{
		Drafts:       drafts,
		Assessments:  assessments,
		Institutions: institutions,
		Notifier:     notifier,
		Cache:        cache,
		Settings: &intakeSettings{
			DraftTTL:        draftTTL,
			FallbackWebhook: fallbackWebhook,
			HighRiskLevel:   risk.Level(highRiskLevel),
		},
	}
	if s.Settings.DraftTTL <= 0 {
		s.Settings.DraftTTL = 72 * time.Hour
	}
	if s.Settings.HighRiskLevel == "" {
		s.Settings.HighRiskLevel = risk.LevelHigh
	}
	if err := s.SetDefinition(def); err != nil {
		return nil, err
	}
	return s, nil
}

// Definition returns the questionnaire currently served to new drafts.
func (s *IntakeService) Definition() *questionnaire.Definition {
	return s.definition.Load()
}

// SetDefinition swaps the questionnaire after validating it. Drafts already
// in progress keep working as long as their section index is still valid.
func (s *IntakeService) SetDefinition(def *questionnaire.Definition) error {
	if def == nil {
		return eris.New("intake service: nil questionnaire")
	}
	if err := def.Validate(); err != nil {
		return eris.Wrap(err, "intake service: questionnaire")
	}
	if err := intake.CheckBindings(def); err != nil {
		return eris.Wrap(err, "intake service: questionnaire")
	}
	s.definition.Store(def)
	return nil
}

// Start opens a new empty draft.
func (s *IntakeService) Start(ctx context.Context, actor Actor, department string) (*DraftView, error) {
	form, err := intake.NewForm(s.Definition())
	if err != nil {
		return nil, err
	}
	stored := &repository.StoredDraft{
		ID:            model.GenerateUUID(),
		InstitutionID: actor.InstitutionID,
		UserID:        actor.UserID,
		Department:    department,
	}
	if err := s.save(ctx, stored, form); err != nil {
		return nil, err
	}
	logger.Log.Info("Intake draft started",
		zap.String("draftId", stored.ID),
		zap.Uint("institutionId", actor.InstitutionID))
	return s.view(stored, form), nil
}

func (s *IntakeService) Get(ctx context.Context, actor Actor, id string) (*DraftView, error) {
	stored, form, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(stored, form), nil
}

// SetFields applies updates in order. The first rejected update aborts the
// whole request and nothing is saved.
func (s *IntakeService) SetFields(ctx context.Context, actor Actor, id string, updates []FieldUpdate) (*DraftView, error) {
	stored, form, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if err := form.SetField(u.Section, u.QuestionID, u.Value); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, stored, form); err != nil {
		return nil, err
	}
	return s.view(stored, form), nil
}

// Next validates the current section and advances when it is clean. The
// draft is saved either way so the field errors persist.
func (s *IntakeService) Next(ctx context.Context, actor Actor, id string) (*DraftView, error) {
	return s.navigate(ctx, actor, id, (*intake.Form).Next)
}

func (s *IntakeService) Previous(ctx context.Context, actor Actor, id string) (*DraftView, error) {
	return s.navigate(ctx, actor, id, (*intake.Form).Previous)
}

func (s *IntakeService) navigate(ctx context.Context, actor Actor, id string, move func(*intake.Form) bool) (*DraftView, error) {
	stored, form, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	moved := move(form)
	if err := s.save(ctx, stored, form); err != nil {
		return nil, err
	}
	v := s.view(stored, form)
	v.Moved = &moved
	return v, nil
}

// Submit validates every section and persists the assessment. On a
// validation failure the errors are saved on the draft. When persistence
// fails the draft is left exactly as it was and the error matches
// util.ErrSubmissionFailed.
func (s *IntakeService) Submit(ctx context.Context, actor Actor, id string) (*model.VendorAssessmentRecord, error) {
	ctx, span := tracing.Start(ctx, "intake.Submit")
	var err error
	defer func() { tracing.End(span, err) }()

	stored, form, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var rec *model.VendorAssessmentRecord
	sink := intake.SinkFunc(func(ctx context.Context, sub intake.Submission) error {
		r, buildErr := s.buildRecord(stored, sub)
		if buildErr != nil {
			return buildErr
		}
		if createErr := s.Assessments.Create(ctx, r); createErr != nil {
			return createErr
		}
		rec = r
		return nil
	})

	sub, err := form.Submit(ctx, sink)
	if errors.Is(err, intake.ErrValidation) {
		monitoring.IntakeSubmissions.WithLabelValues("invalid").Inc()
		if saveErr := s.save(ctx, stored, form); saveErr != nil {
			logger.Log.Warn("Could not save draft errors", zap.String("draftId", id), zap.Error(saveErr))
		}
		return nil, err
	}
	if err != nil {
		monitoring.IntakeSubmissions.WithLabelValues("sink_failed").Inc()
		logger.Log.Error("Intake submission failed, draft kept",
			zap.String("draftId", id),
			zap.Error(err))
		err = eris.Wrap(errors.Join(util.ErrSubmissionFailed, err), "intake service: submit")
		return nil, err
	}

	monitoring.IntakeSubmissions.WithLabelValues("submitted").Inc()
	for rule, flags := range risk.EvaluateByRule(&sub.Assessment) {
		monitoring.RiskFlagsRaised.WithLabelValues(rule).Add(float64(len(flags)))
	}

	if delErr := s.Drafts.Delete(ctx, id); delErr != nil {
		logger.Log.Warn("Could not delete submitted draft", zap.String("draftId", id), zap.Error(delErr))
	}
	if s.Cache != nil {
		if cacheErr := s.Cache.Invalidate(ctx, actor.InstitutionID); cacheErr != nil {
			logger.Log.Warn("Could not invalidate dashboard cache", zap.Error(cacheErr))
		}
	}
	s.notifyHighRisk(ctx, rec, sub.Flags)

	logger.Log.Info("Vendor assessment submitted",
		zap.Uint("assessmentId", rec.ID),
		zap.String("vendor", rec.VendorName),
		zap.Int("flags", rec.FlagCount))
	return rec, nil
}

// Evaluate runs the risk rules over an assessment without touching any
// draft.
func (s *IntakeService) Evaluate(a model.VendorAssessment) EvaluateResult {
	flags := risk.Evaluate(&a)
	return EvaluateResult{
		Flags:     flags,
		ByRule:    risk.EvaluateByRule(&a),
		RiskLevel: risk.LevelOf(flags),
	}
}

func (s *IntakeService) buildRecord(stored *repository.StoredDraft, sub intake.Submission) (*model.VendorAssessmentRecord, error) {
	assessment, err := json.Marshal(sub.Assessment)
	if err != nil {
		return nil, eris.Wrap(err, "intake service: encode assessment")
	}
	flags, err := json.Marshal(sub.Flags)
	if err != nil {
		return nil, eris.Wrap(err, "intake service: encode flags")
	}
	return &model.VendorAssessmentRecord{
		InstitutionID:        stored.InstitutionID,
		SubmittedBy:          stored.UserID,
		VendorName:           sub.Assessment.BasicInfo.VendorName,
		ProductName:          sub.Assessment.BasicInfo.ProductName,
		Department:           stored.Department,
		QuestionnaireVersion: sub.QuestionnaireVersion,
		Assessment:           assessment,
		RiskFlags:            flags,
		FlagCount:            len(sub.Flags),
		RiskLevel:            string(risk.LevelOf(sub.Flags)),
		Status:               model.VendorPending,
	}, nil
}

func (s *IntakeService) notifyHighRisk(ctx context.Context, rec *model.VendorAssessmentRecord, flags []string) {
	if s.Notifier == nil || !risk.AtLeast(risk.LevelOf(flags), s.Settings.HighRiskLevel) {
		return
	}
	webhook, channel := s.Settings.FallbackWebhook, ""
	if s.Institutions != nil {
		inst, err := s.Institutions.FindByID(ctx, rec.InstitutionID)
		if err == nil && inst.SlackWebhookURL != "" {
			webhook, channel = inst.SlackWebhookURL, inst.SlackChannel
		}
	}
	text := fmt.Sprintf(":warning: %s risk vendor submitted: *%s* (%s), %d flag(s)",
		rec.RiskLevel, rec.VendorName, rec.ProductName, len(flags))
	for _, f := range flags {
		text += "\n• " + f
	}
	notifyQuietly(ctx, s.Notifier, "intake_high_risk", webhook, SlackMessage{Text: text, Channel: channel})
}

func (s *IntakeService) load(ctx context.Context, actor Actor, id string) (*repository.StoredDraft, *intake.Form, error) {
	stored, err := s.Drafts.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if stored.InstitutionID != actor.InstitutionID || stored.UserID != actor.UserID {
		return nil, nil, util.ErrDraftNotFound
	}
	form, err := intake.Restore(s.Definition(), stored.Draft)
	if err != nil {
		return nil, nil, eris.Wrap(err, "intake service: restore draft")
	}
	return stored, form, nil
}

func (s *IntakeService) save(ctx context.Context, stored *repository.StoredDraft, form *intake.Form) error {
	stored.Draft = form.Draft()
	if err := s.Drafts.Save(ctx, stored, s.Settings.DraftTTL); err != nil {
		return eris.Wrap(err, "intake service: save draft")
	}
	return nil
}

func (s *IntakeService) view(stored *repository.StoredDraft, form *intake.Form) *DraftView {
	sec := form.CurrentSection()
	return &DraftView{
		ID:                   stored.ID,
		QuestionnaireVersion: form.Definition().Version,
		CurrentSection:       form.CurrentIndex(),
		TotalSections:        len(form.Definition().Sections),
		IsFirstSection:       form.IsFirstSection(),
		IsLastSection:        form.IsLastSection(),
		Section: SectionView{
			Key:         sec.Key,
			Title:       sec.Title,
			Description: sec.Description,
			Questions:   form.VisibleQuestions(sec.Key),
		},
		Assessment: form.Assessment(),
		Errors:     form.Errors(),
		Flags:      form.Flags(),
		UpdatedAt:  stored.UpdatedAt,
	}
}
