package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InflightGuard serializes crawls per source: at most one task per source id
// is processed at a time, across all worker processes. Without it two
// concurrent crawls of the same source could race on the dedup check and
// insert duplicate articles.
type InflightGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewInflightGuard creates a guard whose locks expire after ttl, which should
// be at least the job timeout so a crashed worker cannot hold a source
// hostage.
func NewInflightGuard(client *redis.Client, ttl time.Duration) *InflightGuard {
	return &InflightGuard{client: client, ttl: ttl}
}

func (g *InflightGuard) key(sourceID string) string {
	return "digest:inflight:" + sourceID
}

// Acquire takes the in-flight lock for a source. It returns false when
// another worker already holds it.
func (g *InflightGuard) Acquire(ctx context.Context, sourceID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(sourceID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight lock for %s: %w", sourceID, err)
	}
	return ok, nil
}

// Release frees the in-flight lock for a source.
func (g *InflightGuard) Release(ctx context.Context, sourceID string) error {
	if err := g.client.Del(ctx, g.key(sourceID)).Err(); err != nil {
		return fmt.Errorf("failed to release in-flight lock for %s: %w", sourceID, err)
	}
	return nil
}
