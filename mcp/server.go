// Package mcp serves the agent to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/ewa-agent/rag/agentic"
	"github.com/sweetpotato0/ewa-agent/rag/document"
	"github.com/sweetpotato0/ewa-agent/runner"
)

// Tool names.
const (
	AskTool      = "ask_ewa_report"
	FindingsTool = "search_findings"
)

// Finder looks up report chunks directly. *agentic.Agent satisfies it.
type Finder interface {
	Chunks(ctx context.Context, params agentic.ToolParameters) ([]document.Chunk, error)
}

// ServerInfo describes the server to clients.
type ServerInfo struct {
	Name    string
	Version string
}

// AskInput is the argument of ask_ewa_report.
type AskInput struct {
	Question     string `json:"question" jsonschema:"Question about the SAP EarlyWatch Alert report"`
	IncludeTrace bool   `json:"include_trace,omitempty" jsonschema:"Also return the full run trace as JSON"`
}

// AskOutput is the structured result of ask_ewa_report.
type AskOutput struct {
	RunID    string `json:"run_id"`
	Answer   string `json:"answer"`
	Approved bool   `json:"approved"`
	Retries  int    `json:"retries"`
}

// FindingsInput is the argument of search_findings.
type FindingsInput struct {
	Question string `json:"question" jsonschema:"Search text"`
	K        int    `json:"k,omitempty" jsonschema:"Number of findings to return"`
	Severity string `json:"severity,omitempty" jsonschema:"Only findings rated CRITICAL, WARNING or OK"`
}

// Finding is one chunk returned by search_findings.
type Finding struct {
	Page     int    `json:"page"`
	Section  string `json:"section"`
	Severity string `json:"severity"`
	Content  string `json:"content"`
}

// FindingsOutput is the structured result of search_findings.
type FindingsOutput struct {
	Findings []Finding `json:"findings"`
}

// NewServer registers the report tools. finder may be nil.
func NewServer(info ServerInfo, ag runner.Asker, finder Finder) *sdkmcp.Server {
	if info.Name == "" {
		info.Name = "ewa-agent"
	}
	if info.Version == "" {
		info.Version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
		Title:   "SAP EarlyWatch Alert assistant",
	}, nil)

	addAskTool(server, ag)
	if finder != nil {
		addFindingsTool(server, finder)
	}
	return server
}

func addAskTool(server *sdkmcp.Server, ag runner.Asker) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        AskTool,
		Description: "Answer a question from the indexed EarlyWatch Alert report. Answers cite pages and sections.",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in AskInput) (*sdkmcp.CallToolResult, AskOutput, error) {
		if strings.TrimSpace(in.Question) == "" {
			return nil, AskOutput{}, fmt.Errorf("question is required")
		}
		trace, err := ag.Run(ctx, in.Question)
		if trace == nil {
			return nil, AskOutput{}, err
		}
		out := AskOutput{RunID: trace.RunID, Answer: trace.FinalAnswer, Approved: trace.Approved, Retries: trace.Retries}

		content := []sdkmcp.Content{&sdkmcp.TextContent{Text: trace.FinalAnswer}}
		if in.IncludeTrace {
			raw, mErr := json.Marshal(trace)
			if mErr != nil {
				return nil, AskOutput{}, mErr
			}
			content = append(content, &sdkmcp.TextContent{Text: string(raw)})
		}
		return &sdkmcp.CallToolResult{Content: content}, out, nil
	})
}

func addFindingsTool(server *sdkmcp.Server, finder Finder) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        FindingsTool,
		Description: "Return report excerpts matching a query, optionally filtered by severity",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in FindingsInput) (*sdkmcp.CallToolResult, FindingsOutput, error) {
		if strings.TrimSpace(in.Question) == "" {
			return nil, FindingsOutput{}, fmt.Errorf("question is required")
		}
		params := agentic.ToolParameters{Question: in.Question, K: in.K}
		if s := strings.ToUpper(strings.TrimSpace(in.Severity)); s != "" {
			sev := document.Severity(s)
			params.Severity = &sev
		}
		chunks, err := finder.Chunks(ctx, params)
		if err != nil {
			return nil, FindingsOutput{}, err
		}

		out := FindingsOutput{Findings: make([]Finding, 0, len(chunks))}
		var lines []string
		for _, c := range chunks {
			out.Findings = append(out.Findings, Finding{Page: c.Page, Section: c.Section, Severity: string(c.Severity), Content: c.Content})
			lines = append(lines, fmt.Sprintf("[Page %d | %s | %s]", c.Page, c.Section, c.Severity))
		}
		if len(lines) == 0 {
			lines = append(lines, "no findings")
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: strings.Join(lines, "\n")}},
		}, out, nil
	})
}

// ServeStdio runs the server over stdin and stdout until ctx ends.
func ServeStdio(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func Handler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(r *http.Request) *sdkmcp.Server {
		return server
	}, nil)
}
