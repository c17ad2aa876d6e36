package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/tracelog"
)

// Recent returns up to limit records from sink, newest first. limit <= 0
// returns everything.
func Recent(ctx context.Context, sink tracelog.Sink, limit int) ([]json.RawMessage, error) {
	switch s := sink.(type) {
	case *tracelog.FileSink:
		records, err := tracelog.ReadFile[json.RawMessage](s.Path())
		if err != nil {
			return nil, err
		}
		return newestFirst(records, limit), nil
	case *tracelog.MemorySink:
		lines := s.Lines()
		records := make([]json.RawMessage, len(lines))
		for i, l := range lines {
			records[i] = l
		}
		return newestFirst(records, limit), nil
	case *RedisSink:
		lines, err := s.Lines(ctx)
		if err != nil {
			return nil, err
		}
		records := make([]json.RawMessage, len(lines))
		for i, l := range lines {
			records[i] = json.RawMessage(l)
		}
		return newestFirst(records, limit), nil
	case *MongoSink:
		return s.Recent(ctx, int64(limit))
	default:
		return nil, fmt.Errorf("trace history not available for %T", sink)
	}
}

func newestFirst(records []json.RawMessage, limit int) []json.RawMessage {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]json.RawMessage, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}
