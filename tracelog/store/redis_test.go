package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sweetpotato0/ewa-agent/tracelog"
)

type run struct {
	RunID    string `json:"run_id"`
	Question string `json:"question"`
}

func newTestRedisSink(t *testing.T, cfg RedisConfig) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	sink := NewRedisSink(&cfg)
	t.Cleanup(func() { sink.Close() })
	return sink, mr
}

func TestRedisSinkAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	sink, _ := newTestRedisSink(t, RedisConfig{Key: "runs"})

	for _, q := range []string{"first", "second"} {
		if err := sink.Append(ctx, run{RunID: q, Question: q}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	lines, err := sink.Lines(ctx)
	if err != nil {
		t.Fatalf("Lines error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got run
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil || got.Question != "first" {
		t.Fatalf("unexpected first line %q (%v)", lines[0], err)
	}
}

func TestRedisSinkTrimAndTTL(t *testing.T) {
	ctx := context.Background()
	sink, mr := newTestRedisSink(t, RedisConfig{Key: "runs", MaxLen: 2, TTL: time.Hour})

	for _, q := range []string{"a", "b", "c"} {
		if err := sink.Append(ctx, run{Question: q}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	if n, _ := sink.Count(ctx); n != 2 {
		t.Fatalf("expected list trimmed to 2, got %d", n)
	}
	lines, _ := sink.Lines(ctx)
	if lines[0] != `{"run_id":"","question":"b"}` {
		t.Fatalf("expected oldest entries dropped, got %q", lines[0])
	}
	if ttl := mr.TTL("runs"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}
}

func TestRedisSinkUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := NewRedisSink(&RedisConfig{Addr: mr.Addr()})
	defer sink.Close()
	mr.Close()
	if err := sink.Append(context.Background(), run{Question: "q"}); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestOpenFileBackend(t *testing.T) {
	sink, closeFn, err := Open(context.Background(), "FILE", t.TempDir()+"/runs.jsonl")
	if err != nil || sink == nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := closeFn(context.Background()); err != nil {
		t.Fatalf("close error: %v", err)
	}
	mem, _, err := Open(context.Background(), BackendMemory, "")
	if _, ok := mem.(*tracelog.MemorySink); err != nil || !ok {
		t.Fatalf("expected memory sink, got %T (%v)", mem, err)
	}
	if _, _, err := Open(context.Background(), "kafka", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_TRACE_KEY", "ewa:test")

	sink, closeFn, err := Open(context.Background(), BackendRedis, "")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer closeFn(context.Background())
	if err := sink.Append(context.Background(), run{Question: "q"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if n, _ := mr.List("ewa:test"); len(n) != 1 {
		t.Fatalf("expected one entry under configured key, got %v", n)
	}

	t.Setenv("REDIS_DB", "16")
	if _, _, err := Open(context.Background(), BackendRedis, ""); err == nil {
		t.Fatal("expected error for out of range REDIS_DB")
	}

	t.Setenv("REDIS_DB", "not-a-number")
	if _, _, err := Open(context.Background(), BackendRedis, ""); err == nil {
		t.Fatal("expected error for malformed REDIS_DB")
	}
}
