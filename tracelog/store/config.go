package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/config"
	"github.com/sweetpotato0/ewa-agent/pkg/env"
	"github.com/sweetpotato0/ewa-agent/tracelog"
)

// Trace log backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// RedisConfigFromEnv loads Redis configuration from environment variables
func RedisConfigFromEnv() (*RedisConfig, error) {
	cfg := DefaultRedisConfig()
	cfg.Addr = env.String("REDIS_ADDR", cfg.Addr)
	cfg.Password = env.String("REDIS_PASSWORD", "")
	cfg.Key = env.String("REDIS_TRACE_KEY", cfg.Key)

	var err error
	if cfg.DB, err = env.Int("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TTL, err = env.Duration("REDIS_TTL", 0); err != nil {
		return nil, err
	}
	maxLen, err := env.Int("REDIS_TRACE_MAXLEN", 0)
	if err != nil {
		return nil, err
	}
	cfg.MaxLen = int64(maxLen)
	return cfg, nil
}

// MongoConfigFromEnv loads MongoDB configuration from environment variables
func MongoConfigFromEnv() *MongoConfig {
	cfg := DefaultMongoConfig()
	cfg.URI = env.String("MONGODB_URI", cfg.URI)
	cfg.Database = env.String("MONGODB_DB", cfg.Database)
	cfg.Collection = env.String("MONGODB_COLLECTION", cfg.Collection)
	return cfg
}

// Open builds the sink for backend. The file sink writes to path. The
// returned close function releases backend connections.
func Open(ctx context.Context, backend, path string) (tracelog.Sink, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return tracelog.NewFileSink(path), noop, nil
	case BackendMemory:
		return tracelog.NewMemorySink(), noop, nil
	case BackendRedis:
		cfg, err := RedisConfigFromEnv()
		if err != nil {
			return nil, noop, err
		}
		if err := config.ValidateRedisConfig(cfg.Addr, cfg.DB, cfg.Key); err != nil {
			return nil, noop, err
		}
		sink := NewRedisSink(cfg)
		if err := sink.Ping(ctx); err != nil {
			sink.Close()
			return nil, noop, fmt.Errorf("redis trace sink: %w", err)
		}
		return sink, func(context.Context) error { return sink.Close() }, nil
	case BackendMongo:
		cfg := MongoConfigFromEnv()
		if err := config.ValidateMongoDBConfig(cfg.URI, cfg.Database, cfg.Collection); err != nil {
			return nil, noop, err
		}
		sink, err := NewMongoSink(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("mongo trace sink: %w", err)
		}
		return sink, sink.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown trace backend %q", backend)
	}
}
