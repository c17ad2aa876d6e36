package runner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadTasks reads one question per line. Blank lines and lines starting with
// '#' are skipped. Task IDs are the 1-based line numbers.
func ReadTasks(r io.Reader) ([]*Task, error) {
	scanner := bufio.NewScanner(r)
	var tasks []*Task
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		tasks = append(tasks, &Task{ID: fmt.Sprintf("q%d", line), Question: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return tasks, nil
}
