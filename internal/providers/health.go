package providers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	healthKeyPrefix = "provider_health:"
	healthTTL       = 30 * time.Second
)

// HealthTracker publishes per-provider health snapshots to Redis so that
// multiple gateway instances share a recent view of upstream health. A nil
// tracker or a tracker without a client is a no-op.
type HealthTracker struct {
	client *redis.Client
}

// NewHealthTracker creates a tracker backed by the given Redis client.
// Pass nil to disable health publishing.
func NewHealthTracker(client *redis.Client) *HealthTracker {
	return &HealthTracker{client: client}
}

// Record publishes the outcome of one provider attempt. Failures to reach
// Redis are ignored; health snapshots are advisory.
func (t *HealthTracker) Record(ctx context.Context, providerID string, ok bool) {
	if t == nil || t.client == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "fail"
	}
	_ = t.client.Set(ctx, healthKeyPrefix+providerID, status, healthTTL).Err()
}

// Status returns the last recorded status for a provider, or "" when no
// snapshot exists (expired or never recorded).
func (t *HealthTracker) Status(ctx context.Context, providerID string) string {
	if t == nil || t.client == nil {
		return ""
	}
	val, err := t.client.Get(ctx, healthKeyPrefix+providerID).Result()
	if err != nil {
		return ""
	}
	return val
}
