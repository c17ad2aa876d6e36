package tracelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxLine bounds a single trace line.
const maxLine = 4 << 20

// ReadFile decodes every line of a JSONL trace log into T, oldest first.
// A missing file yields no records.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	defer f.Close()
	return Read[T](f)
}

// Read decodes JSONL records from r. Blank lines are skipped.
func Read[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	var out []T
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return out, fmt.Errorf("decode trace line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read trace log: %w", err)
	}
	return out, nil
}
