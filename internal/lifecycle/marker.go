// Package lifecycle retires aged articles: archive after 30 days, delete
// after 90, keeping the search index in step with the store.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker throttles maintenance to at most one run per calendar day. The
// marker lives outside the process because several scheduler instances may
// run behind a load balancer.
type Marker interface {
	// ShouldRun reports whether maintenance has not yet run today.
	ShouldRun(ctx context.Context) (bool, error)
	// MarkRun records that maintenance ran today.
	MarkRun(ctx context.Context) error
}

// RedisMarker stores the last run date under a single key with a TTL.
type RedisMarker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisMarker creates a daily-run marker.
func NewRedisMarker(client *redis.Client, key string, ttl time.Duration) *RedisMarker {
	return &RedisMarker{
		client: client,
		key:    key,
		ttl:    ttl,
		now:    time.Now,
	}
}

// ShouldRun compares the stored date with today.
func (m *RedisMarker) ShouldRun(ctx context.Context) (bool, error) {
	lastRun, err := m.client.Get(ctx, m.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("read maintenance marker: %w", err)
	}

	return lastRun != m.today(), nil
}

// MarkRun stores today's date with the configured expiry.
func (m *RedisMarker) MarkRun(ctx context.Context) error {
	if err := m.client.Set(ctx, m.key, m.today(), m.ttl).Err(); err != nil {
		return fmt.Errorf("write maintenance marker: %w", err)
	}
	return nil
}

func (m *RedisMarker) today() string {
	return m.now().UTC().Format("2006-01-02")
}
