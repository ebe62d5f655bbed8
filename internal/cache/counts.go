package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/todomvc-api/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// CountsKey is the Redis hash holding per-visibility todo counts
	CountsKey = "todos:counts"
	// DefaultCountsTTL bounds how long cached counts are trusted
	DefaultCountsTTL = 5 * time.Minute
)

// CountsStore is the cache surface used by handlers and the worker
type CountsStore interface {
	Get(ctx context.Context) (*models.Counts, bool, error)
	Set(ctx context.Context, c models.Counts) error
	Invalidate(ctx context.Context) error
}

// Redis wraps the shared Redis client. The same client backs the rate limiter store.
type Redis struct {
	client *redis.Client
}

// NewRedis parses redisURL, connects and pings
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Client exposes the underlying client for the rate limiter store
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

// CountsCache stores models.Counts in a Redis hash with a TTL
type CountsCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewCountsCache creates a counts cache on client. A non-positive ttl uses DefaultCountsTTL.
func NewCountsCache(client redis.Cmdable, ttl time.Duration) *CountsCache {
	if ttl <= 0 {
		ttl = DefaultCountsTTL
	}
	return &CountsCache{client: client, key: CountsKey, ttl: ttl}
}

// Get returns the cached counts. The boolean is false on a miss.
func (c *CountsCache) Get(ctx context.Context) (*models.Counts, bool, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached counts: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	counts, err := decodeCounts(fields)
	if err != nil {
		// A corrupt entry is treated as a miss and dropped
		_ = c.Invalidate(ctx)
		return nil, false, nil
	}
	return &counts, true, nil
}

// Set stores counts and refreshes the TTL atomically
func (c *CountsCache) Set(ctx context.Context, counts models.Counts) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.key, encodeCounts(counts))
		pipe.Expire(ctx, c.key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set cached counts: %w", err)
	}
	return nil
}

// Invalidate removes the cached counts
func (c *CountsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("invalidate cached counts: %w", err)
	}
	return nil
}

func encodeCounts(c models.Counts) map[string]any {
	return map[string]any{
		string(models.VisibilityAll):       c.All,
		string(models.VisibilityActive):    c.Active,
		string(models.VisibilityCompleted): c.Completed,
	}
}

func decodeCounts(fields map[string]string) (models.Counts, error) {
	var c models.Counts
	targets := map[models.Visibility]*int{
		models.VisibilityAll:       &c.All,
		models.VisibilityActive:    &c.Active,
		models.VisibilityCompleted: &c.Completed,
	}
	for v, dst := range targets {
		raw, ok := fields[string(v)]
		if !ok {
			return models.Counts{}, fmt.Errorf("cached counts missing %q", v)
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return models.Counts{}, fmt.Errorf("cached counts has invalid %q: %q", v, raw)
		}
		*dst = n
	}
	if c.Active+c.Completed != c.All {
		return models.Counts{}, fmt.Errorf("cached counts are inconsistent: %+v", c)
	}
	return c, nil
}

var _ CountsStore = (*CountsCache)(nil)
