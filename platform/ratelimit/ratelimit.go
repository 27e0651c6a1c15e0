// Package ratelimit provides keyed request limiters for public endpoints.
// Redis holds the counters when configured so limits hold across replicas;
// the in-memory limiter serves single-process deployments.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis is a fixed-window counter: INCR per key and window, expiring with the window.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis creates a fixed-window limiter allowing limit requests per window.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow increments the counter for key in the current window.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().UnixNano() / int64(r.window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, windowStart)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return count <= int64(r.limit), nil
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-key token bucket. Keys idle for longer than ttl are
// removed by Sweep, which RunSweeper calls periodically.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory allows burst requests at once, refilled at r per second.
func NewMemory(r rate.Limit, burst int, ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{
		entries: make(map[string]*memoryEntry),
		rate:    r,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewMemoryPerWindow allows limit requests per window.
func NewMemoryPerWindow(limit int, window time.Duration) *Memory {
	return NewMemory(rate.Every(window/time.Duration(limit)), limit, 5*window)
}

// Allow never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	return m.AllowKey(key), nil
}

// AllowKey consumes one token for key.
func (m *Memory) AllowKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Sweep evicts idle keys and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for key, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
