package document

import "testing"

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"CRITICAL":      SeverityCritical,
		"critical!":     SeverityCritical,
		" Warning ":     SeverityWarning,
		"ok":            SeverityOK,
		"OK.":           SeverityOK,
		"":              SeverityUnknown,
		"informational": SeverityUnknown,
	}
	for in, want := range tests {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	chunk := Chunk{
		ID:       "c1",
		Content:  "HANA memory usage high",
		Section:  "3.1 HANA Memory",
		Severity: SeverityWarning,
		Page:     4,
		Identity: DefaultIdentity(),
	}
	back := FromMetadata(chunk.ID, chunk.Content, chunk.Metadata())
	if back != chunk {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", back, chunk)
	}
}

func TestFromMetadataAcceptsJSONNumbers(t *testing.T) {
	chunk := FromMetadata("c2", "text", map[string]any{
		MetaPage:     float64(7),
		MetaSeverity: "critical",
	})
	if chunk.Page != 7 || chunk.Severity != SeverityCritical {
		t.Fatalf("unexpected chunk %#v", chunk)
	}
}

func TestKey(t *testing.T) {
	a := Chunk{Page: 1, Section: "General", Content: "a"}
	b := Chunk{Page: 1, Section: "General", Content: "b"}
	if a.Key() != b.Key() {
		t.Fatal("expected equal keys for same page and section")
	}
}

func TestNextChunkIDUnique(t *testing.T) {
	if NextChunkID("MiniEWA") == NextChunkID("MiniEWA") {
		t.Fatal("expected unique chunk IDs")
	}
}
