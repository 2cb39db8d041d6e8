package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/polygraphy/digest/internal/lifecycle"
)

func newTestMarker(t *testing.T) (*lifecycle.RedisMarker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return lifecycle.NewRedisMarker(client, "digest:lifecycle:last_run", 24*time.Hour), mr
}

func TestRedisMarker_ShouldRunWhenUnset(t *testing.T) {
	marker, _ := newTestMarker(t)

	shouldRun, err := marker.ShouldRun(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shouldRun {
		t.Error("maintenance should run when no marker exists")
	}
}

func TestRedisMarker_MarkThenShouldNotRun(t *testing.T) {
	marker, mr := newTestMarker(t)
	ctx := context.Background()

	if err := marker.MarkRun(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shouldRun, err := marker.ShouldRun(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shouldRun {
		t.Error("maintenance must not run twice on the same day")
	}

	if ttl := mr.TTL("digest:lifecycle:last_run"); ttl != 24*time.Hour {
		t.Errorf("marker ttl = %v, want 24h", ttl)
	}
}

func TestRedisMarker_ExpiredMarkerRunsAgain(t *testing.T) {
	marker, mr := newTestMarker(t)
	ctx := context.Background()

	if err := marker.MarkRun(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(25 * time.Hour)

	shouldRun, err := marker.ShouldRun(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shouldRun {
		t.Error("maintenance should run again after the marker expired")
	}
}
