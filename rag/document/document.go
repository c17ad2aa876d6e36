package document

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Severity is the status label the EWA report attaches to a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityOK       Severity = "OK"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity maps free text onto a Severity. Matching is case-insensitive
// and accepts the label anywhere in the text ("Critical!" is CRITICAL).
func ParseSeverity(raw string) Severity {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case upper == "":
		return SeverityUnknown
	case strings.Contains(upper, string(SeverityCritical)):
		return SeverityCritical
	case strings.Contains(upper, string(SeverityWarning)):
		return SeverityWarning
	case strings.Contains(upper, string(SeverityOK)):
		return SeverityOK
	default:
		return SeverityUnknown
	}
}

// Valid reports whether s is one of the four known labels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityOK, SeverityUnknown:
		return true
	}
	return false
}

// Identity metadata stamped on every chunk of a prepared report.
const (
	DefaultDocument = "MiniEWA"
	DefaultSystem   = "SAP S/4HANA 1610"
	DefaultDatabase = "SAP HANA 2.0 SP05"
)

// Identity names the report and the SAP system it describes.
type Identity struct {
	Document string `json:"document"`
	System   string `json:"system"`
	Database string `json:"database"`
}

// DefaultIdentity returns the identity used when none is configured.
func DefaultIdentity() Identity {
	return Identity{Document: DefaultDocument, System: DefaultSystem, Database: DefaultDatabase}
}

// Chunk is one retrievable excerpt of a report. Chunks are read-only once indexed.
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Section  string   `json:"section"`
	Severity Severity `json:"severity"`
	Page     int      `json:"page"`
	Identity
}

// Key identifies a (page, section) pair; the findings tool keeps one chunk per key.
type Key struct {
	Page    int
	Section string
}

// Key returns the dedup key of the chunk.
func (c Chunk) Key() Key {
	return Key{Page: c.Page, Section: c.Section}
}

// Metadata metadata keys stored next to embeddings.
const (
	MetaSection  = "section"
	MetaSeverity = "severity"
	MetaPage     = "page"
	MetaDocument = "document"
	MetaSystem   = "system"
	MetaDatabase = "database"
)

// Metadata flattens the chunk attributes for a vector store.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		MetaSection:  c.Section,
		MetaSeverity: string(c.Severity),
		MetaPage:     c.Page,
		MetaDocument: c.Document,
		MetaSystem:   c.System,
		MetaDatabase: c.Database,
	}
}

// FromMetadata rebuilds a chunk from what a vector store returned.
// Numbers that went through JSON come back as float64 and are accepted.
func FromMetadata(id, content string, meta map[string]any) Chunk {
	return Chunk{
		ID:       id,
		Content:  content,
		Section:  stringValue(meta[MetaSection]),
		Severity: ParseSeverity(stringValue(meta[MetaSeverity])),
		Page:     intValue(meta[MetaPage]),
		Identity: Identity{
			Document: stringValue(meta[MetaDocument]),
			System:   stringValue(meta[MetaSystem]),
			Database: stringValue(meta[MetaDatabase]),
		},
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func intValue(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case float32:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

var chunkCounter atomic.Int64

// NextChunkID returns a process-unique chunk identifier scoped by document name.
func NextChunkID(doc string) string {
	next := chunkCounter.Add(1)
	if doc == "" {
		return fmt.Sprintf("chunk_%d", next)
	}
	return fmt.Sprintf("%s_chunk_%d", doc, next)
}
