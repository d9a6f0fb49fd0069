package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/metrics"
	"knit-tracker-backend/internal/models"
)

// AnalyticsCache holds computed analytics summaries per user. Implementations
// must treat backend failures as misses: analytics can always be recomputed.
type AnalyticsCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.AnalyticsSummary, bool)
	Set(ctx context.Context, userID uuid.UUID, summary *models.AnalyticsSummary)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type RedisAnalytics struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisAnalytics(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisAnalytics {
	return &RedisAnalytics{rdb: rdb, ttl: ttl, logger: logger}
}

func key(userID uuid.UUID) string {
	return fmt.Sprintf("analytics:%s", userID)
}

func (c *RedisAnalytics) Get(ctx context.Context, userID uuid.UUID) (*models.AnalyticsSummary, bool) {
	raw, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("miss")
		return nil, false
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		c.logger.Warn("analytics cache read failed, recomputing",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, false
	}

	var summary models.AnalyticsSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		metrics.RecordCacheLookup("error")
		c.logger.Warn("analytics cache entry is corrupt",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, false
	}
	metrics.RecordCacheLookup("hit")
	return &summary, true
}

func (c *RedisAnalytics) Set(ctx context.Context, userID uuid.UUID, summary *models.AnalyticsSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("analytics cache write failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func (c *RedisAnalytics) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		c.logger.Warn("analytics cache invalidation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// Nop never caches.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*models.AnalyticsSummary, bool) {
	return nil, false
}

func (Nop) Set(context.Context, uuid.UUID, *models.AnalyticsSummary) {}

func (Nop) Invalidate(context.Context, uuid.UUID) {}
