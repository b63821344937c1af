package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"go.uber.org/zap"
)

// RedisStore keeps each session's samples in a Redis list that expires after
// the session TTL
type RedisStore struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	maxSamples int
	logger     *logger.Logger
}

// NewRedisStore connects to Redis using cfg
func NewRedisStore(cfg config.SessionConfig, log *logger.Logger) (*RedisStore, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := NewRedisStoreWithClient(client, cfg, log)

	log.Info("Session store initialized",
		zap.String("backend", "redis"),
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("ttl", cfg.TTL))

	return store, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, cfg config.SessionConfig, log *logger.Logger) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pii"
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		ttl:        cfg.TTL,
		maxSamples: cfg.MaxSamples,
		logger:     log.WithComponent("sessions"),
	}
}

func (r *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, sessionID)
}

// Append pushes a sample, trims the list and refreshes its expiry atomically
func (r *RedisStore) Append(ctx context.Context, sessionID string, sample Sample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	key := r.key(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if r.maxSamples > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxSamples), -1)
		}
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to store sample", zap.Error(err), zap.String("session_id", sessionID))
		return fmt.Errorf("failed to store sample: %w", err)
	}
	return nil
}

// Samples returns the session's samples, oldest first. Entries that do not
// decode are dropped.
func (r *RedisStore) Samples(ctx context.Context, sessionID string) ([]Sample, error) {
	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	samples := make([]Sample, 0, len(raw))
	for _, item := range raw {
		var s Sample
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			r.logger.Warn("Dropping corrupted sample", zap.Error(err), zap.String("session_id", sessionID))
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Delete removes the session list
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// maskRedisURL hides the password of a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 || scheme > at {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}

// NewStore creates the session store selected by cfg.Backend
func NewStore(cfg config.SessionConfig, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL, cfg.MaxSamples), nil
	case "redis":
		return NewRedisStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown sessions backend: %s", cfg.Backend)
	}
}
