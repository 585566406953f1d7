package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultRedisPrefix namespaces timeline entries
	DefaultRedisPrefix = "lyrics-sync:timeline:"

	redisTimeout  = 5 * time.Second
	redisScanSize = 100
)

// RedisMirror persists cache entries in redis under a key prefix
type RedisMirror struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror connects to redis and checks the connection. A zero ttl
// keeps entries forever.
func NewRedisMirror(opts *redis.Options, prefix string, ttl time.Duration) (*RedisMirror, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.Infof("%s Redis mirror connected at %s (prefix: %s, ttl: %v)", logcolors.LogCacheInit, opts.Addr, prefix, ttl)
	return &RedisMirror{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

// Name identifies the mirror in logs and stats
func (m *RedisMirror) Name() string {
	return "redis"
}

func (m *RedisMirror) key(k string) string {
	return m.prefix + k
}

// Load reads key
func (m *RedisMirror) Load(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	data, err := m.rdb.Get(ctx, m.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store writes value under key with the configured TTL
func (m *RedisMirror) Store(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return m.rdb.Set(ctx, m.key(key), value, m.ttl).Err()
}

// Delete removes key
func (m *RedisMirror) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return m.rdb.Del(ctx, m.key(key)).Err()
}

func (m *RedisMirror) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := m.rdb.Scan(ctx, cursor, m.prefix+"*", redisScanSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear removes every key under the prefix
func (m *RedisMirror) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return m.scan(ctx, func(keys []string) error {
		return m.rdb.Del(ctx, keys...).Err()
	})
}

// Range iterates over all entries under the prefix
func (m *RedisMirror) Range(fn func(key string, value []byte) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	err := m.scan(ctx, func(keys []string) error {
		values, err := m.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue // expired between SCAN and MGET
			}
			if !fn(strings.TrimPrefix(keys[i], m.prefix), []byte(s)) {
				return errStopRange
			}
		}
		return nil
	})
	if err == errStopRange {
		return nil
	}
	return err
}

// Close closes the client
func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}
