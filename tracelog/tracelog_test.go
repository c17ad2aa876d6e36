package tracelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type record struct {
	Question string `json:"question"`
	Approved bool   `json:"approved"`
	Answer   string `json:"final_answer"`
}

func TestFileSinkCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agent_runs.jsonl")
	sink := NewFileSink(path)
	ctx := context.Background()

	if err := sink.Append(ctx, record{Question: "q1", Approved: true, Answer: "line one\nline two"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := sink.Append(ctx, record{Question: "q2"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}

	got, err := ReadFile[record](path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if len(got) != 2 || got[0].Question != "q1" || got[0].Answer != "line one\nline two" || got[1].Question != "q2" {
		t.Fatalf("unexpected records %#v", got)
	}
}

func TestFileSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	sinks := []*FileSink{NewFileSink(path), NewFileSink(path)}
	long := strings.Repeat("x", 64*1024)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record{Question: fmt.Sprintf("q%d", i), Answer: long}
			if err := sinks[i%2].Append(context.Background(), rec); err != nil {
				t.Errorf("Append error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := ReadFile[record](path)
	if err != nil {
		t.Fatalf("interleaved lines: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 records, got %d", len(got))
	}
}

func TestFileSinkRejectsUnencodable(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err := sink.Append(context.Background(), map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected marshal error")
	}
	if err := sink.Append(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

func TestReadFileMissing(t *testing.T) {
	got, err := ReadFile[record](filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil || got != nil {
		t.Fatalf("expected no records, got %v %v", got, err)
	}
}

func TestMultiSinkStopsAtFirstError(t *testing.T) {
	first := NewMemorySink()
	last := NewMemorySink()
	boom := errors.New("boom")
	multi := MultiSink{first, nil, failingSink{err: boom}, last}

	if err := multi.Append(context.Background(), record{Question: "q"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if first.Len() != 1 || last.Len() != 0 {
		t.Fatalf("unexpected fan-out first=%d last=%d", first.Len(), last.Len())
	}
	if !strings.Contains(string(first.Lines()[0]), `"question":"q"`) {
		t.Fatalf("unexpected line %s", first.Lines()[0])
	}
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, any) error { return f.err }
