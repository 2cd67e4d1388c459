package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	translationLockTTL = 10 * time.Minute
	planContentTTL     = 24 * time.Hour
)

// RedisCoordinator covers the cross-process coordination concerns: the
// single-writer lock per (plan, language) translation key and the poll
// content cache.
type RedisCoordinator struct {
	redis *redis.Client
}

// NewRedisCoordinator creates a new RedisCoordinator instance
func NewRedisCoordinator(redisClient *redis.Client) *RedisCoordinator {
	return &RedisCoordinator{redis: redisClient}
}

func translationLockKey(planID uuid.UUID, language string) string {
	return fmt.Sprintf("plan:translation_lock:%s:%s", planID, language)
}

func planContentKey(planID uuid.UUID, language string) string {
	return fmt.Sprintf("plan:content:%s:%s", planID, language)
}

// AcquireTranslationLock takes the writer lock for one translation key.
// It returns false when another worker already holds it.
func (c *RedisCoordinator) AcquireTranslationLock(ctx context.Context, planID uuid.UUID, language string) (bool, error) {
	return c.redis.SetNX(ctx, translationLockKey(planID, language), "1", translationLockTTL).Result()
}

// ReleaseTranslationLock frees the writer lock.
func (c *RedisCoordinator) ReleaseTranslationLock(ctx context.Context, planID uuid.UUID, language string) error {
	return c.redis.Del(ctx, translationLockKey(planID, language)).Err()
}

// GetPlanContent returns cached poll content bytes, or nil on a miss.
func (c *RedisCoordinator) GetPlanContent(ctx context.Context, planID uuid.UUID, language string) ([]byte, error) {
	data, err := c.redis.Get(ctx, planContentKey(planID, language)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// CachePlanContent stores terminal poll content so repeated polls skip the
// database. Content is only cached once it can no longer change.
func (c *RedisCoordinator) CachePlanContent(ctx context.Context, planID uuid.UUID, language string, content []byte) error {
	return c.redis.Set(ctx, planContentKey(planID, language), content, planContentTTL).Err()
}
