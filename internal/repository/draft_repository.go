package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"ai_blueprint_backend/internal/intake"
	"ai_blueprint_backend/internal/util"
)

const draftKeyPrefix = "intake_draft:"

// StoredDraft is an intake draft plus the session it belongs to.
type StoredDraft struct {
	ID            string       `json:"id"`
	InstitutionID uint         `json:"institutionId"`
	UserID        uint         `json:"userId"`
	Department    string       `json:"department"`
	Draft         intake.Draft `json:"draft"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// DraftRepository keeps in-progress intake drafts in Redis with a sliding
// TTL.
type DraftRepository struct {
	Redis *redis.Client
}

func NewDraftRepository(rdb *redis.Client) *DraftRepository {
	return &DraftRepository{Redis: rdb}
}

func (r *DraftRepository) Save(ctx context.Context, d *StoredDraft, ttl time.Duration) error {
	d.UpdatedAt = time.Now().UTC()
	val, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, draftKeyPrefix+d.ID, val, ttl).Err()
}

// Get returns util.ErrDraftNotFound for missing or expired drafts.
func (r *DraftRepository) Get(ctx context.Context, id string) (*StoredDraft, error) {
	val, err := r.Redis.Get(ctx, draftKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, util.ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	var d StoredDraft
	if err := json.Unmarshal(val, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	return r.Redis.Del(ctx, draftKeyPrefix+id).Err()
}
