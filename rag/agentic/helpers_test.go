package agentic

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/message"
	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// stubLLM replies per stage. Replies are consumed in order and the last one
// repeats once the script runs out.
type stubLLM struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	calls   map[string]int
	prompts map[string][]string
}

func newStubLLM(replies map[string][]string) *stubLLM {
	return &stubLLM{
		replies: replies,
		errs:    map[string]error{},
		calls:   map[string]int{},
		prompts: map[string][]string{},
	}
}

func (s *stubLLM) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	stage := agent.StageFromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.calls[stage]
	s.calls[stage] = n + 1
	if len(req.Messages) > 0 {
		s.prompts[stage] = append(s.prompts[stage], req.Messages[len(req.Messages)-1].Text())
	}
	if err := s.errs[stage]; err != nil {
		return nil, err
	}
	script := s.replies[stage]
	if len(script) == 0 {
		return nil, fmt.Errorf("no reply scripted for stage %q", stage)
	}
	reply := script[min(n, len(script)-1)]
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, reply)}, nil
}

func (s *stubLLM) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, n := range s.calls {
		sum += n
	}
	return sum
}

type searchCall struct {
	query     string
	k, fetchK int
}

type stubStore struct {
	mu     sync.Mutex
	chunks []document.Chunk
	err    error
	calls  []searchCall
}

func (s *stubStore) Search(ctx context.Context, query string, k, fetchK int) ([]document.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, searchCall{query: query, k: k, fetchK: fetchK})
	if s.err != nil {
		return nil, s.err
	}
	n := min(k, len(s.chunks))
	out := make([]document.Chunk, n)
	copy(out, s.chunks[:n])
	return out, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []any
	err     error
}

func (s *recordingSink) Append(ctx context.Context, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func reportChunks() []document.Chunk {
	id := document.DefaultIdentity()
	return []document.Chunk{
		{ID: "c1", Content: "HANA memory usage exceeded 90 percent.", Section: "3 HANA Database", Severity: document.SeverityCritical, Page: 3, Identity: id},
		{ID: "c2", Content: "Log backups are older than 24 hours.", Section: "4 Backup", Severity: document.SeverityWarning, Page: 5, Identity: id},
		{ID: "c3", Content: "HANA memory usage details continued.", Section: "3 HANA Database", Severity: document.SeverityCritical, Page: 3, Identity: id},
		{ID: "c4", Content: "Kernel patch level is current.", Section: "6 Kernel", Severity: document.SeverityOK, Page: 8, Identity: id},
	}
}

const (
	decisionReply = `{"action":"get_findings","parameters":{"question":"What are the critical HANA findings?","k":6,"severity":null}}`
	approveReply  = `{"approved": true}`
	scoreReply    = `{"accuracy": 4, "relevance": 5, "completeness": 3, "clarity": 4, "confidence": 0.8}`
)

type keywordEmbedder struct{}

var keywordSpace = []string{"hana", "memory", "backup", "security", "kernel"}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(keywordSpace))
	lower := strings.ToLower(text)
	for idx, kw := range keywordSpace {
		if strings.Contains(lower, kw) {
			vec[idx] = 1
		}
	}
	return vec, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = k.Embed(ctx, text)
	}
	return out, nil
}

func (k *keywordEmbedder) Dimension() int { return len(keywordSpace) }
