// Package cache holds per-owner JSON read models that are cheap to throw
// away: dashboard summaries and analytics.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("cache")

// Cache stores JSON encoded values under string keys.
type Cache interface {
	// Get decodes the value under key into dst and reports whether it
	// was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb.Close()
		return nil, errors.Annotatef(err, "connecting to redis at %s", cfg.Addr)
	}
	logger.Infof("redis connected: %s", pong)
	return rdb, nil
}

type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Annotatef(err, "redis get %q", key)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		// A stale encoding is a miss; the caller recomputes and overwrites.
		logger.Warningf("dropping undecodable cache entry %q: %v", key, err)
		return false, nil
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Annotatef(err, "redis set %q", key)
	}
	return nil
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Annotatef(err, "redis del %v", keys)
	}
	return nil
}

type entry struct {
	data    []byte
	expires time.Time // zero never expires
}

// Memory is a process-local Cache used when no redis is configured.
type Memory struct {
	clock   clock.Clock
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Memory{clock: clk, entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && !m.clock.Now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Trace(err)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.clock.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}
