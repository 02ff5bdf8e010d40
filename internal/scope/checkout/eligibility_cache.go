package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"obsp-workers/internal/common/database"
	"obsp-workers/internal/common/metrics"
	"obsp-workers/internal/models"
)

// EligibilityCache keeps the latest verdict per package level in Redis.
// Concurrent checks are not de-duplicated; the last write wins.
//
// Keys carry no buyer: one deployment serves one buyer's marketplace
// credentials. Workers shared between buyers need a Redis database each.
type EligibilityCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewEligibilityCache(redis *database.RedisClient, ttl time.Duration) *EligibilityCache {
	return &EligibilityCache{redis: redis, ttl: ttl}
}

func (c *EligibilityCache) Put(ctx context.Context, packageID, levelKey string, result models.EligibilityResult) error {
	return c.redis.SetJSON(ctx, eligibilityKey(packageID, levelKey), result, c.ttl)
}

// Get returns the cached verdict; ok is false on a miss.
func (c *EligibilityCache) Get(ctx context.Context, packageID, levelKey string) (*models.EligibilityResult, bool, error) {
	var result models.EligibilityResult
	err := c.redis.GetJSON(ctx, eligibilityKey(packageID, levelKey), &result)
	switch {
	case errors.Is(err, database.ErrCacheMiss):
		metrics.EligibilityCacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	case err != nil:
		metrics.EligibilityCacheLookups.WithLabelValues("error").Inc()
		return nil, false, err
	}
	metrics.EligibilityCacheLookups.WithLabelValues("hit").Inc()
	return &result, true, nil
}

func (c *EligibilityCache) Invalidate(ctx context.Context, packageID, levelKey string) error {
	return c.redis.Del(ctx, eligibilityKey(packageID, levelKey))
}

func eligibilityKey(packageID, levelKey string) string {
	return fmt.Sprintf("obsp:eligibility:%s:%s", packageID, levelKey)
}
