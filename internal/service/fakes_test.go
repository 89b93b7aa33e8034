package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/util"
)

// memDrafts round-trips drafts through JSON the way the Redis store does.
type memDrafts struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemDrafts() *memDrafts { return &memDrafts{data: map[string][]byte{}} }

func (m *memDrafts) Save(_ context.Context, d *repository.StoredDraft, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.data[d.ID] = b
	m.saves++
	return nil
}

func (m *memDrafts) Get(_ context.Context, id string) (*repository.StoredDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[id]
	if !ok {
		return nil, util.ErrDraftNotFound
	}
	var d repository.StoredDraft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *memDrafts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

type fakeWriter struct {
	records []*model.VendorAssessmentRecord
	err     error
}

func (w *fakeWriter) Create(_ context.Context, rec *model.VendorAssessmentRecord) error {
	if w.err != nil {
		return w.err
	}
	rec.ID = uint(len(w.records) + 1)
	w.records = append(w.records, rec)
	return nil
}

type fakeInstitutions map[uint]*model.Institution

func (f fakeInstitutions) FindByID(_ context.Context, id uint) (*model.Institution, error) {
	if inst, ok := f[id]; ok {
		return inst, nil
	}
	return nil, util.ErrInstitutionNotFound
}

type sentMessage struct {
	URL string
	Msg SlackMessage
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, url string, msg SlackMessage) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{URL: url, Msg: msg})
	return nil
}

// fakeCache stores JSON like the Redis cache and records invalidations.
type fakeCache struct {
	data        map[string][]byte
	gets, sets  int
	invalidated []uint
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, institutionID uint) error {
	c.invalidated = append(c.invalidated, institutionID)
	return nil
}

type fakeRows struct {
	readiness []model.ReadinessAssessment
	adoption  []model.ToolAdoption
	calls     int
}

func (f *fakeRows) ReadinessRows(_ context.Context, _ uint, _ string, from, to time.Time) ([]model.ReadinessAssessment, error) {
	f.calls++
	var out []model.ReadinessAssessment
	for _, r := range f.readiness {
		if !r.CreatedAt.Before(from) && !r.CreatedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRows) CompletedReadinessRows(_ context.Context, _ uint, _ string, from, to time.Time) ([]model.ReadinessAssessment, error) {
	f.calls++
	var out []model.ReadinessAssessment
	for _, r := range f.readiness {
		if r.Status != model.ReadinessCompleted {
			continue
		}
		at := r.CreatedAt
		if r.CompletedAt != nil {
			at = *r.CompletedAt
		}
		if !at.Before(from) && !at.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRows) AdoptionRows(_ context.Context, _ uint, _ string, from, to time.Time) ([]model.ToolAdoption, error) {
	f.calls++
	var out []model.ToolAdoption
	for _, r := range f.adoption {
		if !r.RecordedAt.Before(from) && !r.RecordedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRows) CreateReadiness(_ context.Context, row *model.ReadinessAssessment) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	f.readiness = append(f.readiness, *row)
	return nil
}

func (f *fakeRows) CreateAdoption(_ context.Context, row *model.ToolAdoption) error {
	f.adoption = append(f.adoption, *row)
	return nil
}

type fakeVendors struct {
	records  []model.VendorAssessmentRecord
	reviewed struct {
		status  model.VendorStatus
		notes   string
		renewal *time.Time
	}
	reportURLs map[uint]string
}

func (f *fakeVendors) FindForWatchlist(_ context.Context, _ uint, _ string, _ time.Time) ([]model.VendorAssessmentRecord, error) {
	return f.records, nil
}

func (f *fakeVendors) FindByID(_ context.Context, institutionID, id uint) (*model.VendorAssessmentRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id && f.records[i].InstitutionID == institutionID {
			r := f.records[i]
			return &r, nil
		}
	}
	return nil, util.ErrAssessmentNotFound
}

func (f *fakeVendors) List(_ context.Context, q repository.VendorQuery) ([]model.VendorAssessmentRecord, int64, error) {
	var out []model.VendorAssessmentRecord
	for _, r := range f.records {
		if r.InstitutionID == q.InstitutionID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeVendors) UpdateReview(_ context.Context, institutionID, id uint, status model.VendorStatus, notes string, renewal *time.Time) error {
	for i := range f.records {
		r := &f.records[i]
		if r.ID == id && r.InstitutionID == institutionID {
			r.Status, r.ReviewNotes, r.RenewalDate = status, notes, renewal
			f.reviewed.status, f.reviewed.notes, f.reviewed.renewal = status, notes, renewal
			return nil
		}
	}
	return util.ErrAssessmentNotFound
}

func (f *fakeVendors) FindOverdue(_ context.Context, now time.Time) ([]model.VendorAssessmentRecord, error) {
	var out []model.VendorAssessmentRecord
	for _, r := range f.records {
		if r.Status == model.VendorApproved && r.RenewalDate != nil && r.RenewalDate.Before(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeVendors) SetReportURL(_ context.Context, id uint, url string) error {
	if f.reportURLs == nil {
		f.reportURLs = map[uint]string{}
	}
	f.reportURLs[id] = url
	return nil
}

type fakePolicies struct {
	templates map[uint]*model.PolicyTemplate
	revisions []model.PolicyRevision
	subs      []model.PolicySubscription
	subsErr   error
}

func newFakePolicies() *fakePolicies {
	return &fakePolicies{templates: map[uint]*model.PolicyTemplate{}}
}

func (f *fakePolicies) Create(_ context.Context, t *model.PolicyTemplate) error {
	t.ID = uint(len(f.templates) + 1)
	c := *t
	f.templates[t.ID] = &c
	return nil
}

func (f *fakePolicies) FindByID(_ context.Context, institutionID, id uint) (*model.PolicyTemplate, error) {
	t, ok := f.templates[id]
	if !ok || t.InstitutionID != institutionID {
		return nil, util.ErrPolicyNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakePolicies) List(_ context.Context, institutionID uint, category string) ([]model.PolicyTemplate, error) {
	var out []model.PolicyTemplate
	for _, t := range f.templates {
		if t.InstitutionID == institutionID && (category == "" || t.Category == category) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakePolicies) SaveRevision(_ context.Context, t *model.PolicyTemplate, rev *model.PolicyRevision) error {
	c := *t
	f.templates[t.ID] = &c
	rev.ID = uint(len(f.revisions) + 1)
	f.revisions = append(f.revisions, *rev)
	return nil
}

func (f *fakePolicies) ListRevisions(_ context.Context, templateID uint) ([]model.PolicyRevision, error) {
	var out []model.PolicyRevision
	for i := len(f.revisions) - 1; i >= 0; i-- {
		if f.revisions[i].TemplateID == templateID {
			out = append(out, f.revisions[i])
		}
	}
	return out, nil
}

func (f *fakePolicies) Subscribe(_ context.Context, sub *model.PolicySubscription) error {
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakePolicies) Subscriptions(_ context.Context, templateID uint) ([]model.PolicySubscription, error) {
	if f.subsErr != nil {
		return nil, f.subsErr
	}
	var out []model.PolicySubscription
	for _, s := range f.subs {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
