package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/intake"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestDraftRepository_SaveGetDelete(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewDraftRepository(rdb)
	ctx := context.Background()

	d := &StoredDraft{
		ID:            "d-1",
		InstitutionID: 3,
		UserID:        8,
		Department:    "Science",
		Draft: intake.Draft{
			Assessment:           model.VendorAssessment{BasicInfo: model.BasicInfo{VendorName: "Acme"}},
			CurrentSection:       2,
			Errors:               map[string]string{"basicInfo.website": "required"},
			QuestionnaireVersion: "1.0",
		},
	}
	require.NoError(t, repo.Save(ctx, d, 72*time.Hour))
	assert.Equal(t, 72*time.Hour, mr.TTL(draftKeyPrefix+"d-1"))
	assert.False(t, d.UpdatedAt.IsZero())

	got, err := repo.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.InstitutionID)
	assert.Equal(t, uint(8), got.UserID)
	assert.Equal(t, "Science", got.Department)
	assert.Equal(t, "Acme", got.Draft.Assessment.BasicInfo.VendorName)
	assert.Equal(t, 2, got.Draft.CurrentSection)
	assert.Equal(t, "required", got.Draft.Errors["basicInfo.website"])
	assert.Equal(t, "1.0", got.Draft.QuestionnaireVersion)
	assert.True(t, d.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, repo.Delete(ctx, "d-1"))
	_, err = repo.Get(ctx, "d-1")
	assert.ErrorIs(t, err, util.ErrDraftNotFound)
}

func TestDraftRepository_ExpiredDraftNotFound(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewDraftRepository(rdb)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &StoredDraft{ID: "d-2"}, time.Hour))
	mr.FastForward(time.Hour + time.Second)

	_, err := repo.Get(ctx, "d-2")
	assert.ErrorIs(t, err, util.ErrDraftNotFound)
}

func TestDraftRepository_SaveSlidesTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewDraftRepository(rdb)
	ctx := context.Background()

	d := &StoredDraft{ID: "d-3"}
	require.NoError(t, repo.Save(ctx, d, time.Hour))
	mr.FastForward(50 * time.Minute)
	require.NoError(t, repo.Save(ctx, d, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(draftKeyPrefix+"d-3"))
}

func TestDraftRepository_CorruptValue(t *testing.T) {
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set(draftKeyPrefix+"bad", "{not json"))

	_, err := NewDraftRepository(rdb).Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, util.ErrDraftNotFound)
}

func TestDashboardCacheRepository_GetSet(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewDashboardCacheRepository(rdb)
	ctx := context.Background()

	key := DashboardCacheKey("readiness", model.DashboardFilter{InstitutionID: 1})
	var out model.ReadinessDashboard
	found, err := repo.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, key, &model.ReadinessDashboard{TotalAssessments: 4}, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))

	found, err = repo.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, out.TotalAssessments)
}

func TestDashboardCacheRepository_InvalidateOneInstitution(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewDashboardCacheRepository(rdb)
	ctx := context.Background()

	from := date(2026, time.January, 1)
	to := date(2026, time.March, 1)
	var mine, theirs []string
	for i := 0; i < 250; i++ {
		f := model.DashboardFilter{InstitutionID: 1, From: from, To: to, Department: string(rune('A' + i%26))}
		f.From = f.From.AddDate(0, 0, i)
		mine = append(mine, DashboardCacheKey("readiness", f))
	}
	theirs = append(theirs,
		DashboardCacheKey("readiness", model.DashboardFilter{InstitutionID: 11, From: from, To: to}),
		DashboardCacheKey("watchlist", model.DashboardFilter{InstitutionID: 2, From: from, To: to}),
	)
	for _, k := range append(append([]string{}, mine...), theirs...) {
		require.NoError(t, repo.Set(ctx, k, 1, time.Hour))
	}
	require.NoError(t, mr.Set(draftKeyPrefix+"keep", "{}"))

	require.NoError(t, repo.Invalidate(ctx, 1))
	for _, k := range mine {
		assert.False(t, mr.Exists(k), k)
	}
	for _, k := range theirs {
		assert.True(t, mr.Exists(k), k)
	}
	assert.True(t, mr.Exists(draftKeyPrefix+"keep"))

	assert.NoError(t, repo.Invalidate(ctx, 99), "nothing cached is not an error")
}
