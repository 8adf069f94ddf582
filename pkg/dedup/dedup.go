// Package dedup suppresses duplicate trigger deliveries. A trigger carrying
// an event id is processed at most once within the retention window.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper reports whether an event id is seen for the first time. FirstSeen
// must be atomic: given two concurrent calls with the same id, exactly one
// returns true.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

const defaultRetention = 24 * time.Hour

// RedisDeduper implements Deduper with SET NX and a TTL.
type RedisDeduper struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, retention: defaultRetention}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, "trigger:event:"+eventID, 1, d.retention).Result()
}

// MemoryDeduper implements Deduper in process memory for tests and
// single-instance deployments.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()

	for id, at := range d.seen {
		if now.Sub(at) > defaultRetention {
			delete(d.seen, id)
		}
	}

	if _, ok := d.seen[eventID]; ok {
		return false, nil
	}

	d.seen[eventID] = now

	return true, nil
}
