package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ewa-agent/tracelog"
)

// RedisSink appends traces to a Redis list, one JSON line per element.
type RedisSink struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	maxLen int64
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Key      string        // List key holding the traces
	TTL      time.Duration // Expiry refreshed on every append (0 means no expiration)
	MaxLen   int64         // Keep only the newest MaxLen traces (0 means unbounded)
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr: "localhost:6379",
		Key:  "ewa-agent:runs",
	}
}

// NewRedisSink creates a new Redis-backed trace sink.
func NewRedisSink(config *RedisConfig) *RedisSink {
	if config == nil {
		config = DefaultRedisConfig()
	}
	key := config.Key
	if key == "" {
		key = DefaultRedisConfig().Key
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisSink{
		client: client,
		key:    key,
		ttl:    config.TTL,
		maxLen: config.MaxLen,
	}
}

// Append pushes record onto the list.
func (s *RedisSink) Append(ctx context.Context, record any) error {
	data, err := tracelog.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, data)
		if s.maxLen > 0 {
			pipe.LTrim(ctx, s.key, -s.maxLen, -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append trace to Redis: %w", err)
	}
	return nil
}

// Lines returns the stored traces, oldest first.
func (s *RedisSink) Lines(ctx context.Context) ([]string, error) {
	lines, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read traces: %w", err)
	}
	return lines, nil
}

// Count returns the number of stored traces.
func (s *RedisSink) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count traces: %w", err)
	}
	return int(n), nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Ping checks if Redis connection is alive
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
