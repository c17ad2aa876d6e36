package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// DefaultSection names text that appears before the first numbered heading.
const DefaultSection = "General"

// DefaultPageFlushChars is the buffer size above which a page end closes a chunk.
const DefaultPageFlushChars = 2000

var (
	sectionPattern  = regexp.MustCompile(`^\d+(\.\d+)*\s+.+`)
	severityPattern = regexp.MustCompile(`(?i)Severity:\s*(CRITICAL|WARNING|OK)`)
)

// ParseSections groups page lines into chunks by numbered section heading.
//
// A heading closes the pending buffer and resets the severity to UNKNOWN. A
// "Severity: X" marker anywhere in a line sets the severity of the current
// buffer. At a page end the buffer is closed only once it holds more than
// flushChars characters, so short sections run across page breaks and are
// attributed to the page where they end.
func ParseSections(pages []Page, flushChars int) []document.Chunk {
	if flushChars <= 0 {
		flushChars = DefaultPageFlushChars
	}
	var (
		chunks   []document.Chunk
		buffer   []string
		section  = DefaultSection
		severity = document.SeverityUnknown
		page     int
	)
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if content == "" {
			return
		}
		chunks = append(chunks, document.Chunk{
			Content:  content,
			Section:  section,
			Severity: severity,
			Page:     page,
		})
	}

	for _, p := range pages {
		page = p.Number
		for _, line := range strings.Split(p.Text, "\n") {
			line = strings.TrimSpace(line)
			if sectionPattern.MatchString(line) {
				flush()
				section = line
				severity = document.SeverityUnknown
			}
			if m := severityPattern.FindStringSubmatch(line); m != nil {
				severity = document.Severity(strings.ToUpper(m[1]))
			}
			buffer = append(buffer, line)
		}
		if utf8.RuneCountInString(strings.Join(buffer, "\n")) > flushChars {
			flush()
		}
	}
	flush()
	return chunks
}
