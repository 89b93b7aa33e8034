package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/util"
)

func newVendorFixture(records ...model.VendorAssessmentRecord) (*VendorService, *fakeVendors, *fakeNotifier, *fakeCache) {
	store := &fakeVendors{records: records}
	notifier := &fakeNotifier{}
	cache := newFakeCache()
	institutions := fakeInstitutions{
		1: {BaseModel: model.BaseModel{ID: 1}, SlackWebhookURL: "https://hooks.example.com/one", SlackChannel: "#it"},
		2: {BaseModel: model.BaseModel{ID: 2}},
	}
	s := NewVendorService(store, institutions, notifier, cache, "https://hooks.example.com/fallback")
	s.now = fixedClock(dashNow)
	return s, store, notifier, cache
}

func TestVendorService_ListClampsPaging(t *testing.T) {
	s, _, _, _ := newVendorFixture(vendorRecord(1, model.VendorPending, "low", nil))
	page, err := s.List(context.Background(), repository.VendorQuery{InstitutionID: 1, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.EqualValues(t, 1, page.Total)
}

func TestVendorService_GetDecodesSnapshot(t *testing.T) {
	rec := vendorRecord(3, model.VendorPending, "medium", nil, "FERPA: missing DPA for student PII")
	rec.Assessment = []byte(`{"basicInfo":{"vendorName":"Acme"}}`)
	s, _, _, _ := newVendorFixture(rec)

	d, err := s.Get(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "Acme", d.Assessment.BasicInfo.VendorName)
	assert.Equal(t, []string{"FERPA: missing DPA for student PII"}, d.Flags)

	_, err = s.Get(context.Background(), 2, 3)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestVendorService_ReviewApproveDefaultsRenewal(t *testing.T) {
	s, store, _, cache := newVendorFixture(vendorRecord(1, model.VendorPending, "low", nil))

	d, err := s.Review(context.Background(), 1, 1, ReviewRequest{Status: model.VendorApproved, Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.VendorApproved, d.Record.Status)
	require.NotNil(t, store.reviewed.renewal)
	assert.Equal(t, time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC), *store.reviewed.renewal)
	assert.Equal(t, []uint{1}, cache.invalidated)
}

func TestVendorService_ReviewExplicitRenewal(t *testing.T) {
	s, store, _, _ := newVendorFixture(vendorRecord(1, model.VendorPending, "low", nil))

	_, err := s.Review(context.Background(), 1, 1, ReviewRequest{Status: model.VendorApproved, RenewalDate: "2026-09-01"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *store.reviewed.renewal)

	_, err = s.Review(context.Background(), 1, 1, ReviewRequest{Status: model.VendorApproved, RenewalDate: "next year"})
	assert.ErrorIs(t, err, util.ErrInvalidWindow)
}

func TestVendorService_ReviewRejectsUnknownStatus(t *testing.T) {
	s, _, _, _ := newVendorFixture(vendorRecord(1, model.VendorPending, "low", nil))
	_, err := s.Review(context.Background(), 1, 1, ReviewRequest{Status: "archived"})
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	_, err = s.Review(context.Background(), 1, 99, ReviewRequest{Status: model.VendorRejected})
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestVendorService_SweepOverdueGroupsByInstitution(t *testing.T) {
	a := vendorRecord(1, model.VendorApproved, "low", timePtr(day(-3)))
	a.VendorName = "Alpha"
	b := vendorRecord(2, model.VendorApproved, "low", timePtr(day(-1)))
	b.VendorName = "Beta"
	c := vendorRecord(3, model.VendorApproved, "low", timePtr(day(-5)))
	c.InstitutionID = 2
	future := vendorRecord(4, model.VendorApproved, "low", timePtr(day(10)))
	s, _, notifier, _ := newVendorFixture(a, b, c, future)

	n, err := s.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, notifier.sent, 2)

	assert.Equal(t, "https://hooks.example.com/one", notifier.sent[0].URL)
	assert.Equal(t, "#it", notifier.sent[0].Msg.Channel)
	assert.Contains(t, notifier.sent[0].Msg.Text, "Alpha (3 days overdue)")
	assert.Contains(t, notifier.sent[0].Msg.Text, "Beta (1 days overdue)")

	assert.Equal(t, "https://hooks.example.com/fallback", notifier.sent[1].URL)
}

func TestVendorService_SweepSurvivesNotifyFailure(t *testing.T) {
	s, _, notifier, _ := newVendorFixture(vendorRecord(1, model.VendorApproved, "low", timePtr(day(-3))))
	notifier.err = errBoom

	n, err := s.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
