package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/exambooking/config"
	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	sessionsTTL  time.Duration
	occupancyTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, sessionsTTL, occupancyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		sessionsTTL:  sessionsTTL,
		occupancyTTL: occupancyTTL,
	}
}

func (c *RedisCache) GetSessions(ctx context.Context) ([]domain.Session, error) {
	data, err := c.client.Get(ctx, sessionsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var sessions []domain.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *RedisCache) SetSessions(ctx context.Context, sessions []domain.Session) error {
	payload, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionsKey(), payload, c.sessionsTTL).Err()
}

// GetOrSeedOccupancy returns the live counter for a session, seeding it
// from the durable count on a miss. While the entry lives, the cached value
// is authoritative over the durable one.
func (c *RedisCache) GetOrSeedOccupancy(ctx context.Context, sessionID int64, durable int) (int, error) {
	key := occupancyKey(sessionID)
	v, err := c.client.Get(ctx, key).Int()
	if err == nil {
		return v, nil
	}
	if err != redis.Nil {
		return 0, err
	}
	// SetNX so a concurrent seeder or incrementer is never overwritten.
	if err := c.client.SetNX(ctx, key, durable, c.occupancyTTL).Err(); err != nil {
		return 0, err
	}
	v, err = c.client.Get(ctx, key).Int()
	if err == redis.Nil {
		// Expired again between seed and read. The durable count is the
		// best answer available.
		return durable, nil
	}
	return v, err
}

// incrOccupancyScript increments a live counter, or re-seeds an expired one
// from the already-updated durable count. Callers apply the durable
// add-delta first, so a re-seed carries the increment instead of losing it.
var incrOccupancyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCR', KEYS[1])
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
return tonumber(ARGV[1])
`)

// IncrementOccupancy atomically bumps the counter for one admission.
// durableAfter must be the occupancy returned by the durable add-delta for
// this same admission.
func (c *RedisCache) IncrementOccupancy(ctx context.Context, sessionID int64, durableAfter int) (int, error) {
	n, err := incrOccupancyScript.Run(ctx, c.client,
		[]string{occupancyKey(sessionID)},
		durableAfter, int(c.occupancyTTL.Seconds())).Int64()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// InvalidateOccupancy drops a session's counter so the next admission
// re-seeds from the durable count. The bulk commit path calls this after
// applying its occupancy delta.
func (c *RedisCache) InvalidateOccupancy(ctx context.Context, sessionID int64) error {
	return c.client.Del(ctx, occupancyKey(sessionID)).Err()
}

// AllowAction is a fixed-window rate limiter keyed by (actor, action).
func (c *RedisCache) AllowAction(ctx context.Context, actor, action string, limit int, window time.Duration) (bool, error) {
	key := rateKey(actor, action)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

func sessionsKey() string {
	return "cache:sessions"
}

func occupancyKey(sessionID int64) string {
	return fmt.Sprintf("occupancy:session:%d", sessionID)
}

func rateKey(actor, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", actor, action)
}
