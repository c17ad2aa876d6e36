// Package tracelog persists agent run traces as newline-delimited JSON.
package tracelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/sweetpotato0/ewa-agent/pkg/logging"
)

// DefaultPath is where the CLI and server append traces unless configured otherwise.
const DefaultPath = "logs/agent_runs.jsonl"

// Sink stores trace records. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, record any) error
}

// Marshal encodes a record as one JSON line without the trailing newline.
func Marshal(record any) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("trace record cannot be nil")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return data, nil
}

// FileSink appends records to a JSONL file. The file and its directory are
// created on first use and never truncated. Each append opens, writes one
// line and closes the file under a process mutex and an advisory file lock,
// so concurrent writers never interleave lines.
type FileSink struct {
	path      string
	lock      *flock.Flock
	mu        sync.Mutex
	lockRetry time.Duration
}

// NewFileSink creates a sink writing to path. An empty path uses DefaultPath.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{
		path:      path,
		lock:      flock.New(path + ".lock"),
		lockRetry: 10 * time.Millisecond,
	}
}

// Path returns the log file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes record as a single line.
func (s *FileSink) Append(ctx context.Context, record any) error {
	data, err := Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create trace log directory: %w", err)
		}
	}
	locked, err := s.lock.TryLockContext(ctx, s.lockRetry)
	if err != nil {
		return fmt.Errorf("lock trace log: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock trace log: %s is busy", s.path)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.WithComponent("tracelog").Warn("unlock trace log failed", "path", s.path, "error", err)
		}
	}()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open trace log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write trace log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trace log: %w", err)
	}
	return nil
}

// MemorySink keeps encoded records in memory.
type MemorySink struct {
	mu    sync.RWMutex
	lines [][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores the JSON encoding of record.
func (s *MemorySink) Append(ctx context.Context, record any) error {
	data, err := Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, data)
	return nil
}

// Lines returns copies of the stored lines in append order.
func (s *MemorySink) Lines() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(s.lines))
	for i, line := range s.lines {
		out[i] = append([]byte(nil), line...)
	}
	return out
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// MultiSink appends to every sink in order and stops at the first error.
type MultiSink []Sink

// Append implements Sink.
func (m MultiSink) Append(ctx context.Context, record any) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
