package agentic

import (
	"context"
	"testing"
	"time"

	"github.com/sweetpotato0/ewa-agent/rag/document"
)

func TestParseDecision(t *testing.T) {
	q := "original question"
	tests := []struct {
		name     string
		raw      string
		fallback bool
		k        int
		severity string
		question string
	}{
		{name: "plain json", raw: `{"action":"get_findings","parameters":{"question":"hana","k":4,"severity":"critical"}}`, k: 4, severity: "CRITICAL", question: "hana"},
		{name: "fenced", raw: "```json\n{\"action\":\"get_findings\",\"parameters\":{\"question\":\"hana\",\"k\":2,\"severity\":null}}\n```", k: 2, question: "hana"},
		{name: "k as string", raw: `{"action":"get_findings","parameters":{"question":"hana","k":"5"}}`, question: "hana"},
		{name: "k as float", raw: `{"action":"get_findings","parameters":{"question":"hana","k":3.5}}`, question: "hana"},
		{name: "k negative", raw: `{"action":"get_findings","parameters":{"question":"hana","k":-2}}`, question: "hana"},
		{name: "k bool", raw: `{"action":"get_findings","parameters":{"question":"hana","k":true}}`, question: "hana"},
		{name: "severity not a string", raw: `{"action":"get_findings","parameters":{"question":"hana","severity":3}}`, question: "hana"},
		{name: "prose", raw: "Use the findings tool please.", fallback: true, k: DefaultFallbackK, question: q},
		{name: "empty", raw: "", fallback: true, k: DefaultFallbackK, question: q},
		{name: "missing parameters", raw: `{"action":"get_findings"}`, fallback: true, k: DefaultFallbackK, question: q},
		{name: "missing action", raw: `{"parameters":{"question":"hana"}}`, fallback: true, k: DefaultFallbackK, question: q},
		{name: "missing question", raw: `{"action":"get_findings","parameters":{"k":3}}`, fallback: true, k: DefaultFallbackK, question: q},
		{name: "array", raw: `[1,2]`, fallback: true, k: DefaultFallbackK, question: q},
		{name: "trailing prose", raw: `{"action":"get_findings","parameters":{"question":"hana"}} hope this helps`, fallback: true, k: DefaultFallbackK, question: q},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecision(tt.raw, q, DefaultFallbackK)
			if d.Fallback != tt.fallback {
				t.Fatalf("fallback = %v, want %v", d.Fallback, tt.fallback)
			}
			if d.Parameters.K != tt.k {
				t.Fatalf("k = %d, want %d", d.Parameters.K, tt.k)
			}
			if d.Parameters.SeverityLabel() != tt.severity {
				t.Fatalf("severity = %q, want %q", d.Parameters.SeverityLabel(), tt.severity)
			}
			if d.Parameters.Question != tt.question {
				t.Fatalf("question = %q, want %q", d.Parameters.Question, tt.question)
			}
			if d.Action != DefaultToolName {
				t.Fatalf("action = %q", d.Action)
			}
		})
	}
}

func TestParseReflection(t *testing.T) {
	ref := ParseReflection(`{"approved": true, "retry_with": {"k": 3}}`, true)
	if !ref.Verdict.Approved || ref.Verdict.RetryWith != nil || ref.Fallback {
		t.Fatalf("approved verdict must ignore retry_with: %#v", ref.Verdict)
	}

	ref = ParseReflection("```\n{\"approved\": false, \"retry_with\": {\"k\": 0, \"severity\": null}}\n```", true)
	if ref.Verdict.Approved || ref.Verdict.RetryWith == nil {
		t.Fatalf("expected rejection with retry, got %#v", ref.Verdict)
	}
	patch := ref.Verdict.RetryWith
	if patch.K != nil || !patch.SeveritySet || patch.Severity != nil {
		t.Fatalf("unexpected patch %#v", patch)
	}

	for _, raw := range []string{"approve", `{"approved": "no"}`, `{"retry_with": {}}`, `null`} {
		ref := ParseReflection(raw, true)
		if !ref.Verdict.Approved || !ref.Fallback {
			t.Fatalf("%q: expected implicit approval, got %#v", raw, ref)
		}
		if string(ref.Output) != `{"approved":true}` {
			t.Fatalf("%q: unexpected fallback output %s", raw, ref.Output)
		}
		if ref := ParseReflection(raw, false); ref.Verdict.Approved {
			t.Fatalf("%q: strict fallback must reject", raw)
		}
	}
}

func TestParseEvaluation(t *testing.T) {
	score := ParseEvaluation(scoreReply)
	if score == nil || score.Accuracy != 4 || score.Completeness != 3 {
		t.Fatalf("unexpected score %#v", score)
	}
	if s := ParseEvaluation(`{"accuracy": 4, "relevance": 4, "completeness": 4, "clarity": 4}`); s == nil || s.Confidence != nil {
		t.Fatalf("confidence should be optional, got %#v", s)
	}
	for _, raw := range []string{
		"great answer",
		`{"accuracy": 6, "relevance": 4, "completeness": 4, "clarity": 4}`,
		`{"accuracy": 4.5, "relevance": 4, "completeness": 4, "clarity": 4}`,
		`{"relevance": 4, "completeness": 4, "clarity": 4}`,
		`{"accuracy": 4, "relevance": 4, "completeness": 4, "clarity": 4, "confidence": 7}`,
	} {
		if s := ParseEvaluation(raw); s != nil {
			t.Fatalf("%q: expected no score, got %#v", raw, s)
		}
	}
}

func TestApplyRetry(t *testing.T) {
	crit := document.SeverityCritical
	prev := ToolParameters{Question: "q", K: 6, Severity: &crit}

	k := 3
	next := ApplyRetry(prev, &RetryPatch{K: &k})
	if next.K != 3 || next.SeverityLabel() != "CRITICAL" {
		t.Fatalf("unexpected merge %#v", next)
	}
	if next.Severity == prev.Severity {
		t.Fatal("next must not alias prev severity")
	}

	zero := 0
	next = ApplyRetry(prev, &RetryPatch{K: &zero, SeveritySet: true})
	if next.K != 6 || next.Severity != nil {
		t.Fatalf("expected k kept and filter cleared, got %#v", next)
	}
	if prev.K != 6 || prev.SeverityLabel() != "CRITICAL" {
		t.Fatalf("prev modified: %#v", prev)
	}

	warn := document.SeverityWarning
	next = ApplyRetry(prev, &RetryPatch{Severity: &warn, SeveritySet: true})
	if next.SeverityLabel() != "WARNING" {
		t.Fatalf("expected WARNING, got %q", next.SeverityLabel())
	}
	if got := ApplyRetry(prev, nil); got.K != 6 || got.SeverityLabel() != "CRITICAL" {
		t.Fatalf("nil patch must keep parameters, got %#v", got)
	}
}

func TestRetryPatchJSON(t *testing.T) {
	k := 4
	data, err := RetryPatch{K: &k, SeveritySet: true}.MarshalJSON()
	if err != nil || string(data) != `{"k":4,"severity":null}` {
		t.Fatalf("unexpected json %s %v", data, err)
	}
	var back RetryPatch
	if err := back.UnmarshalJSON([]byte(`{"severity":"ok"}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.K != nil || !back.SeveritySet || back.Severity == nil || *back.Severity != document.SeverityOK {
		t.Fatalf("unexpected patch %#v", back)
	}
}

func TestFindingsTool(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{chunks: reportChunks()}
	tool := NewFindingsTool(store, 0, 0)

	got, err := tool.Execute(ctx, ToolParameters{Question: "  "})
	if err != nil || len(got) != 0 || len(store.calls) != 0 {
		t.Fatalf("blank question must not hit the store: %v %v %d", got, err, len(store.calls))
	}

	got, err = tool.Execute(ctx, ToolParameters{Question: "hana"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if store.calls[0].k != DefaultK || store.calls[0].fetchK != DefaultFetchK {
		t.Fatalf("expected defaults k=8 fetch_k=12, got %#v", store.calls[0])
	}
	if len(got) != 3 || got[0].ID != "c1" || got[1].ID != "c2" || got[2].ID != "c4" {
		t.Fatalf("expected first chunk per page/section in order, got %#v", got)
	}

	for _, k := range []int{3, 8, 20} {
		if _, err := tool.Execute(ctx, ToolParameters{Question: "hana", K: k}); err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		last := store.calls[len(store.calls)-1]
		if last.k != k || last.fetchK != DefaultFetchK {
			t.Fatalf("expected k=%d with fixed fetch_k=%d, got %#v", k, DefaultFetchK, last)
		}
	}

	ok := document.SeverityOK
	got, _ = tool.Execute(ctx, ToolParameters{Question: "hana", Severity: &ok})
	if len(got) != 1 || got[0].ID != "c4" {
		t.Fatalf("expected OK chunk only, got %#v", got)
	}
	unknown := document.Severity("HIGH")
	got, _ = tool.Execute(ctx, ToolParameters{Question: "hana", Severity: &unknown})
	if len(got) != 3 {
		t.Fatalf("unmatched filter must be dropped, got %d chunks", len(got))
	}
}

func TestBuildContext(t *testing.T) {
	long := make([]rune, 900)
	for i := range long {
		long[i] = 'é'
	}
	chunks := []document.Chunk{
		{Content: "short", Section: "1 Overview", Severity: document.SeverityOK, Page: 1},
		{Content: string(long), Section: "2 HANA", Severity: document.SeverityCritical, Page: 2},
	}
	got := BuildContext(chunks, 800)
	want := "[Page 1 | 1 Overview | OK]\nshort\n\n[Page 2 | 2 HANA | CRITICAL]\n" + string(long[:800])
	if got != want {
		t.Fatalf("unexpected context (len %d)", len([]rune(got)))
	}
	if BuildContext(nil, 800) != "" {
		t.Fatal("expected empty context")
	}
}

func TestSanitizeJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"```\n{\"a\":1}\n``` trailing": `{"a":1}`,
		"  {\"a\":1}  ":                 `{"a":1}`,
	}
	for in, want := range cases {
		if got := sanitizeJSON(in); got != want {
			t.Fatalf("sanitizeJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSecondsRounding(t *testing.T) {
	if got := seconds(1234 * time.Millisecond); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
	if got := seconds(1236 * time.Millisecond); got != 1.24 {
		t.Fatalf("expected 1.24, got %v", got)
	}
}
