package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sweetpotato0/ewa-agent/tracelog"
)

func runIDs(t *testing.T, records []json.RawMessage) []string {
	t.Helper()
	ids := make([]string, len(records))
	for i, raw := range records {
		var r run
		if err := json.Unmarshal(raw, &r); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		ids[i] = r.RunID
	}
	return ids
}

func TestRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	redisSink, _ := newTestRedisSink(t, RedisConfig{Key: "runs"})
	sinks := map[string]tracelog.Sink{
		"file":   tracelog.NewFileSink(filepath.Join(t.TempDir(), "runs.jsonl")),
		"redis":  redisSink,
		"memory": tracelog.NewMemorySink(),
	}
	for name, sink := range sinks {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b", "c"} {
				if err := sink.Append(ctx, run{RunID: id}); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			got, err := Recent(ctx, sink, 2)
			if err != nil {
				t.Fatalf("Recent error: %v", err)
			}
			ids := runIDs(t, got)
			if len(ids) != 2 || ids[0] != "c" || ids[1] != "b" {
				t.Fatalf("unexpected order %v", ids)
			}
			all, _ := Recent(ctx, sink, 0)
			if len(all) != 3 {
				t.Fatalf("expected all 3 records, got %d", len(all))
			}
		})
	}
}

func TestRecentUnsupportedSink(t *testing.T) {
	sink := tracelog.MultiSink{tracelog.NewMemorySink()}
	if _, err := Recent(context.Background(), sink, 1); err == nil {
		t.Fatal("expected error for multi sink")
	}
}
