package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

// DashboardCacheRepository stores rendered dashboard view-models as JSON.
type DashboardCacheRepository struct {
	Redis *redis.Client
}

func NewDashboardCacheRepository(rdb *redis.Client) *DashboardCacheRepository {
	return &DashboardCacheRepository{Redis: rdb}
}

// DashboardCacheKey is stable for equal filters.
func DashboardCacheKey(kind string, f model.DashboardFilter) string {
	return fmt.Sprintf("dashboard:%d:%s:%s:%s:%s",
		f.InstitutionID, kind,
		f.From.UTC().Format(util.DateFormat),
		f.To.UTC().Format(util.DateFormat),
		f.Department)
}

// Get decodes a cached value into dest and reports whether it was found.
func (r *DashboardCacheRepository) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.Redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *DashboardCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, key, val, ttl).Err()
}

// Invalidate drops every cached dashboard of an institution.
func (r *DashboardCacheRepository) Invalidate(ctx context.Context, institutionID uint) error {
	pattern := fmt.Sprintf("dashboard:%d:*", institutionID)
	iter := r.Redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Redis.Del(ctx, keys...).Err()
}
