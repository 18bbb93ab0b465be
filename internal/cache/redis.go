package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conorfennell/idiomas/internal/assetcache"
)

const (
	generationsKey = "idiomas:cache:generations"
	generationKey  = "idiomas:cache:gen:"
)

// RedisStore keeps asset cache generations in Redis so several clients can
// share one cache. Each generation is a hash of request key to JSON entry.
type RedisStore struct {
	client *redis.Client
}

var _ assetcache.Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL (redis://host:port or redis://host:port/db).
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("connected to redis", "addr", opts.Addr)
	return &RedisStore{client: client}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get returns the entry stored under key in generation, or nil when absent.
func (s *RedisStore) Get(ctx context.Context, generation, key string) (*assetcache.Entry, error) {
	b, err := s.client.HGet(ctx, generationKey+generation, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	var e assetcache.Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return &e, nil
}

// Put stores a single entry.
func (s *RedisStore) Put(ctx context.Context, generation string, entry assetcache.Entry) error {
	return s.PutAll(ctx, generation, []assetcache.Entry{entry})
}

// PutAll writes the entries and registers the generation in one MULTI/EXEC.
func (s *RedisStore) PutAll(ctx context.Context, generation string, entries []assetcache.Entry) error {
	fields := make(map[string]any, len(entries))
	for _, e := range entries {
		if e.StoredAt.IsZero() {
			e.StoredAt = time.Now()
		}
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode cache entry %s: %w", e.URL, err)
		}
		fields[e.Key] = b
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, generationsKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: generation})
		if len(fields) > 0 {
			pipe.HSet(ctx, generationKey+generation, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store generation %s: %w", generation, err)
	}
	return nil
}

// Generations lists the stored generations, oldest first.
func (s *RedisStore) Generations(ctx context.Context) ([]string, error) {
	gens, err := s.client.ZRange(ctx, generationsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache generations: %w", err)
	}
	return gens, nil
}

// DeleteGeneration removes a generation and its entries.
func (s *RedisStore) DeleteGeneration(ctx context.Context, generation string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, generationKey+generation)
		pipe.ZRem(ctx, generationsKey, generation)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}
	return nil
}
