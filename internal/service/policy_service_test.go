package service

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

const policyV1 = "# Acceptable AI Use\n\nStaff may use approved tools.\nStudents may not submit AI work as their own.\n"

func newPolicyFixture(t *testing.T) (*PolicyService, *fakePolicies, *fakeNotifier, *model.PolicyTemplate) {
	t.Helper()
	store := newFakePolicies()
	notifier := &fakeNotifier{}
	s := NewPolicyService(store, notifier)
	tpl, err := s.Create(context.Background(), 1, CreatePolicyRequest{Title: "AI Use", Category: "academic", Body: policyV1})
	require.NoError(t, err)
	return s, store, notifier, tpl
}

func TestRedline_CountsChangedLines(t *testing.T) {
	after := "# Acceptable AI Use\n\nStaff may use approved tools after training.\nStudents may not submit AI work as their own.\nCite any AI assistance.\n"
	diff, added, removed, err := Redline(policyV1, after, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
	assert.Contains(t, diff, "--- v1")
	assert.Contains(t, diff, "+++ v2")
	assert.Contains(t, diff, "-Staff may use approved tools.")
	assert.Contains(t, diff, "+Cite any AI assistance.")
}

func TestRedline_MissingTrailingNewline(t *testing.T) {
	_, added, removed, err := Redline("a", "a\nb", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, removed)
}

func TestTruncateRedline_KeepsRunesWhole(t *testing.T) {
	s := "+ Élèves: café\n"
	assert.Equal(t, s, truncateRedline(s, len(s)))

	// byte 3 is the second byte of "É"
	got := truncateRedline(s, 3)
	assert.Equal(t, "+ \n...\n", got)
	assert.True(t, utf8.ValidString(got))

	for max := 0; max < len(s); max++ {
		assert.True(t, utf8.ValidString(truncateRedline(s, max)), "max %d", max)
	}
}

func TestPolicyService_UpdateIdenticalBodyIsNoop(t *testing.T) {
	s, store, notifier, tpl := newPolicyFixture(t)
	store.subs = []model.PolicySubscription{{TemplateID: tpl.ID, WebhookURL: "https://hooks.example.com/a"}}

	res, err := s.Update(context.Background(), 1, tpl.ID, 9, UpdatePolicyRequest{Body: policyV1})
	require.NoError(t, err)
	assert.Nil(t, res.Revision)
	assert.Equal(t, 1, res.Template.Version)
	assert.Empty(t, store.revisions)
	assert.Empty(t, notifier.sent)
}

func TestPolicyService_UpdateStoresRevisionAndNotifies(t *testing.T) {
	s, _, notifier, tpl := newPolicyFixture(t)
	_, err := s.Subscribe(context.Background(), 1, tpl.ID, SubscribeRequest{WebhookURL: "https://hooks.example.com/a", Channel: "#policy"})
	require.NoError(t, err)
	_, err = s.Subscribe(context.Background(), 1, tpl.ID, SubscribeRequest{WebhookURL: "https://hooks.example.com/b"})
	require.NoError(t, err)

	res, err := s.Update(context.Background(), 1, tpl.ID, 9, UpdatePolicyRequest{
		Title: "AI Use (2026)",
		Body:  policyV1 + "Cite any AI assistance.\n",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Revision)
	assert.Equal(t, 2, res.Template.Version)
	assert.Equal(t, "AI Use (2026)", res.Template.Title)
	assert.Equal(t, 2, res.Revision.Version)
	assert.Equal(t, uint(9), res.Revision.AuthorID)
	assert.Equal(t, 1, res.Revision.Added)
	assert.Zero(t, res.Revision.Removed)
	assert.Equal(t, 2, res.Notified)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "#policy", notifier.sent[0].Msg.Channel)
	assert.Contains(t, notifier.sent[0].Msg.Text, "updated to v2")
	assert.Contains(t, notifier.sent[0].Msg.Text, "+Cite any AI assistance.")

	revs, err := s.Revisions(context.Background(), 1, tpl.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 2, revs[0].Version)
}

func TestPolicyService_NotifyFailureKeepsRevision(t *testing.T) {
	s, store, notifier, tpl := newPolicyFixture(t)
	store.subs = []model.PolicySubscription{{TemplateID: tpl.ID, WebhookURL: "https://hooks.example.com/a"}}
	notifier.err = errBoom

	res, err := s.Update(context.Background(), 1, tpl.ID, 9, UpdatePolicyRequest{Body: "replaced\n"})
	require.NoError(t, err)
	assert.Zero(t, res.Notified)
	assert.Len(t, store.revisions, 1)
}

func TestPolicyService_TenantScoping(t *testing.T) {
	s, _, _, tpl := newPolicyFixture(t)

	_, err := s.Update(context.Background(), 2, tpl.ID, 9, UpdatePolicyRequest{Body: "x"})
	assert.ErrorIs(t, err, util.ErrPolicyNotFound)
	_, err = s.Revisions(context.Background(), 2, tpl.ID)
	assert.ErrorIs(t, err, util.ErrPolicyNotFound)
	_, err = s.Subscribe(context.Background(), 2, tpl.ID, SubscribeRequest{WebhookURL: "https://hooks.example.com/a"})
	assert.ErrorIs(t, err, util.ErrPolicyNotFound)

	list, err := s.List(context.Background(), 1, "academic")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
