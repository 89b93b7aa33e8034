package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/pkg/logger"
)

type PolicyStore interface {
	Create(ctx context.Context, t *model.PolicyTemplate) error
	FindByID(ctx context.Context, institutionID, id uint) (*model.PolicyTemplate, error)
	List(ctx context.Context, institutionID uint, category string) ([]model.PolicyTemplate, error)
	SaveRevision(ctx context.Context, t *model.PolicyTemplate, rev *model.PolicyRevision) error
	ListRevisions(ctx context.Context, templateID uint) ([]model.PolicyRevision, error)
	Subscribe(ctx context.Context, sub *model.PolicySubscription) error
	Subscriptions(ctx context.Context, templateID uint) ([]model.PolicySubscription, error)
}

type CreatePolicyRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Category string `json:"category" binding:"max=100"`
	Body     string `json:"body" binding:"required"`
}

// UpdatePolicyRequest replaces the body. A new title is only applied
// together with a body change.
type UpdatePolicyRequest struct {
	Title string `json:"title" binding:"max=255"`
	Body  string `json:"body" binding:"required"`
}

type SubscribeRequest struct {
	WebhookURL string `json:"webhookUrl" binding:"required,url"`
	Channel    string `json:"channel" binding:"max=100"`
}

// UpdatePolicyResult reports what an update did. Revision is nil when the
// body was unchanged.
type UpdatePolicyResult struct {
	Template *model.PolicyTemplate `json:"template"`
	Revision *model.PolicyRevision `json:"revision,omitempty"`
	Notified int                   `json:"notified"`
}

// PolicyService versions policy templates and notifies subscribers of each
// redline.
type PolicyService struct {
	Store    PolicyStore
	Notifier Notifier
}

func NewPolicyService(store PolicyStore, notifier Notifier) *PolicyService {
	return &PolicyService{Store: store, Notifier: notifier}
}

func (s *PolicyService) Create(ctx context.Context, institutionID uint, req CreatePolicyRequest) (*model.PolicyTemplate, error) {
	t := &model.PolicyTemplate{
		InstitutionID: institutionID,
		Title:         req.Title,
		Category:      req.Category,
		Body:          req.Body,
		Version:       1,
	}
	if err := s.Store.Create(ctx, t); err != nil {
		return nil, eris.Wrap(err, "policy: create")
	}
	return t, nil
}

func (s *PolicyService) List(ctx context.Context, institutionID uint, category string) ([]model.PolicyTemplate, error) {
	return s.Store.List(ctx, institutionID, category)
}

func (s *PolicyService) Revisions(ctx context.Context, institutionID, id uint) ([]model.PolicyRevision, error) {
	if _, err := s.Store.FindByID(ctx, institutionID, id); err != nil {
		return nil, err
	}
	return s.Store.ListRevisions(ctx, id)
}

func (s *PolicyService) Subscribe(ctx context.Context, institutionID, id uint, req SubscribeRequest) (*model.PolicySubscription, error) {
	if _, err := s.Store.FindByID(ctx, institutionID, id); err != nil {
		return nil, err
	}
	sub := &model.PolicySubscription{TemplateID: id, WebhookURL: req.WebhookURL, Channel: req.Channel}
	if err := s.Store.Subscribe(ctx, sub); err != nil {
		return nil, eris.Wrap(err, "policy: subscribe")
	}
	return sub, nil
}

// Update stores a new revision with a redline against the previous body and
// notifies every subscriber. Notification failures never roll back the
// revision. An identical body is a no-op.
func (s *PolicyService) Update(ctx context.Context, institutionID, id, authorID uint, req UpdatePolicyRequest) (*UpdatePolicyResult, error) {
	t, err := s.Store.FindByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	if t.Body == req.Body {
		return &UpdatePolicyResult{Template: t}, nil
	}

	redline, added, removed, err := Redline(t.Body, req.Body, t.Version, t.Version+1)
	if err != nil {
		return nil, err
	}

	t.Body = req.Body
	t.Version++
	if req.Title != "" {
		t.Title = req.Title
	}
	rev := &model.PolicyRevision{
		TemplateID: t.ID,
		Version:    t.Version,
		AuthorID:   authorID,
		Body:       t.Body,
		Redline:    redline,
		Added:      added,
		Removed:    removed,
	}
	if err := s.Store.SaveRevision(ctx, t, rev); err != nil {
		return nil, eris.Wrap(err, "policy: save revision")
	}

	logger.Log.Info("Policy revised",
		zap.Uint("templateId", t.ID),
		zap.Int("version", t.Version),
		zap.Int("added", added),
		zap.Int("removed", removed))

	return &UpdatePolicyResult{
		Template: t,
		Revision: rev,
		Notified: s.fanOut(ctx, t, rev),
	}, nil
}

func (s *PolicyService) fanOut(ctx context.Context, t *model.PolicyTemplate, rev *model.PolicyRevision) int {
	subs, err := s.Store.Subscriptions(ctx, t.ID)
	if err != nil {
		logger.Log.Warn("Could not load policy subscriptions", zap.Uint("templateId", t.ID), zap.Error(err))
		return 0
	}
	text := fmt.Sprintf(":memo: *%s* updated to v%d (+%d/-%d lines)\n```\n%s```",
		t.Title, rev.Version, rev.Added, rev.Removed, truncateRedline(rev.Redline, 2500))

	sent := 0
	for _, sub := range subs {
		if notifyQuietly(ctx, s.Notifier, "policy_redline", sub.WebhookURL, SlackMessage{Text: text, Channel: sub.Channel}) {
			sent++
		}
	}
	return sent
}

// Redline returns a unified diff between two bodies and the number of added
// and removed lines.
func Redline(before, after string, fromVersion, toVersion int) (string, int, int, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(before)),
		B:        difflib.SplitLines(ensureNewline(after)),
		FromFile: fmt.Sprintf("v%d", fromVersion),
		ToFile:   fmt.Sprintf("v%d", toVersion),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", 0, 0, eris.Wrap(err, "policy: diff")
	}

	var added, removed int
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return text, added, removed, nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// truncateRedline cuts s to at most max bytes on a rune boundary.
func truncateRedline(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n...\n"
}
