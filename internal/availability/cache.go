package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "availability:slots:"

// CachedDay is one provider-day of computed slots plus its freshness stamps.
type CachedDay struct {
	Slots        []Slot    `json:"slots"`
	CalculatedAt time.Time `json:"calculated_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Cache stores computed slots per provider and local date. It is advisory:
// a miss or error only costs a recompute, never correctness.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache panics on a nil client.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		panic("availability: redis client is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func cacheKey(providerID, date string) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, providerID, date)
}

// Get returns the cached day, or nil on a miss.
func (c *Cache) Get(ctx context.Context, providerID, date string) (*CachedDay, error) {
	data, err := c.rdb.Get(ctx, cacheKey(providerID, date)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability: get cached day: %w", err)
	}
	var day CachedDay
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, fmt.Errorf("availability: unmarshal cached day: %w", err)
	}
	return &day, nil
}

// Put stores one provider-day with the cache TTL.
func (c *Cache) Put(ctx context.Context, providerID, date string, day *CachedDay) error {
	data, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("availability: marshal cached day: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(providerID, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("availability: set cached day: %w", err)
	}
	return nil
}

// Evict drops every cached day for a provider. Called when the profile or
// time off changes, so stale slots never outlive a schedule edit.
func (c *Cache) Evict(ctx context.Context, providerID string) error {
	pattern := cacheKeyPrefix + providerID + ":*"
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("availability: scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("availability: evict cached days: %w", err)
	}
	return nil
}
