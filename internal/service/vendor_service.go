package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
)

// VendorStore is the persistence VendorService needs.
type VendorStore interface {
	FindByID(ctx context.Context, institutionID, id uint) (*model.VendorAssessmentRecord, error)
	List(ctx context.Context, q repository.VendorQuery) ([]model.VendorAssessmentRecord, int64, error)
	UpdateReview(ctx context.Context, institutionID, id uint, status model.VendorStatus, notes string, renewal *time.Time) error
	FindOverdue(ctx context.Context, now time.Time) ([]model.VendorAssessmentRecord, error)
	SetReportURL(ctx context.Context, id uint, url string) error
}

// VendorDetail is a stored assessment with its snapshot decoded.
type VendorDetail struct {
	Record     *model.VendorAssessmentRecord `json:"record"`
	Assessment model.VendorAssessment        `json:"assessment"`
	Flags      []string                      `json:"flags"`
}

// ReviewRequest is a reviewer decision. RenewalDate defaults to one year
// after approval.
type ReviewRequest struct {
	Status      model.VendorStatus `json:"status" binding:"required"`
	Notes       string             `json:"notes"`
	RenewalDate string             `json:"renewalDate"`
}

type VendorService struct {
	Store        VendorStore
	Institutions InstitutionFinder
	Notifier     Notifier
	Cache        CacheInvalidator

	FallbackWebhook string

	now func() time.Time
}

func NewVendorService(store VendorStore, institutions InstitutionFinder, notifier Notifier, cache CacheInvalidator, fallbackWebhook string) *VendorService {
	return &VendorService{
		Store:           store,
		Institutions:    institutions,
		Notifier:        notifier,
		Cache:           cache,
		FallbackWebhook: fallbackWebhook,
		now:             time.Now,
	}
}

func (s *VendorService) List(ctx context.Context, q repository.VendorQuery) (*util.PageResponse, error) {
	records, total, err := s.Store.List(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "vendor: list")
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return &util.PageResponse{List: records, Total: total, Page: page, Limit: limit}, nil
}

func (s *VendorService) Get(ctx context.Context, institutionID, id uint) (*VendorDetail, error) {
	rec, err := s.Store.FindByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	a, flags, err := rec.Decode()
	if err != nil {
		return nil, eris.Wrapf(err, "vendor: decode assessment %d", id)
	}
	if flags == nil {
		flags = []string{}
	}
	return &VendorDetail{Record: rec, Assessment: a, Flags: flags}, nil
}

// Review records a reviewer decision on an assessment.
func (s *VendorService) Review(ctx context.Context, institutionID, id uint, req ReviewRequest) (*VendorDetail, error) {
	switch req.Status {
	case model.VendorPending, model.VendorApproved, model.VendorRejected:
	default:
		return nil, util.ErrInvalidStatus
	}

	var renewal *time.Time
	if req.RenewalDate != "" {
		d, err := util.ParseDate(req.RenewalDate)
		if err != nil {
			return nil, eris.Wrap(util.ErrInvalidWindow, "vendor: renewal date")
		}
		renewal = &d
	} else if req.Status == model.VendorApproved {
		d := truncateDay(s.now()).AddDate(1, 0, 0)
		renewal = &d
	}

	if err := s.Store.UpdateReview(ctx, institutionID, id, req.Status, req.Notes, renewal); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, institutionID); err != nil {
			logger.Log.Warn("Could not invalidate dashboard cache", zap.Error(err))
		}
	}
	logger.Log.Info("Vendor assessment reviewed",
		zap.Uint("assessmentId", id),
		zap.String("status", string(req.Status)))
	return s.Get(ctx, institutionID, id)
}

// SweepOverdue sends one reminder per institution listing its approved
// vendors past their renewal date. It returns how many institutions were
// notified.
func (s *VendorService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	records, err := s.Store.FindOverdue(ctx, now)
	if err != nil {
		return 0, eris.Wrap(err, "vendor: find overdue")
	}

	byInstitution := make(map[uint][]model.VendorAssessmentRecord)
	var order []uint
	for _, r := range records {
		if _, ok := byInstitution[r.InstitutionID]; !ok {
			order = append(order, r.InstitutionID)
		}
		byInstitution[r.InstitutionID] = append(byInstitution[r.InstitutionID], r)
	}

	notified := 0
	for _, instID := range order {
		webhook, channel := s.FallbackWebhook, ""
		if s.Institutions != nil {
			inst, err := s.Institutions.FindByID(ctx, instID)
			if err == nil && inst.SlackWebhookURL != "" {
				webhook, channel = inst.SlackWebhookURL, inst.SlackChannel
			}
		}
		msg := SlackMessage{Text: overdueText(byInstitution[instID], now), Channel: channel}
		if notifyQuietly(ctx, s.Notifier, "renewal_overdue", webhook, msg) {
			notified++
		}
	}

	logger.Log.Info("Renewal sweep finished",
		zap.Int("overdue", len(records)),
		zap.Int("institutionsNotified", notified))
	return notified, nil
}

func overdueText(records []model.VendorAssessmentRecord, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":hourglass: %d vendor review(s) are past their renewal date:", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "\n• %s (%d days overdue)", r.VendorName, -DaysUntil(now, *r.RenewalDate))
	}
	return b.String()
}

// RunRenewalSweep calls SweepOverdue every interval until ctx is done.
func (s *VendorService) RunRenewalSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOverdue(ctx); err != nil {
				logger.Log.Error("Renewal sweep failed", zap.Error(err))
			}
		}
	}
}
