package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/mcp"
	"github.com/sweetpotato0/ewa-agent/runner"
	"github.com/sweetpotato0/ewa-agent/server"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var appendMode bool
	cmd := &cobra.Command{
		Use:   "ingest <report.pdf|report.html|report.txt>",
		Short: "Split a report into findings and index them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.settings, false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			res, err := a.newPipeline(!appendMode).Run(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %d pages of %s\n", res.Chunks, res.Pages, res.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&appendMode, "append", false, "Keep previously indexed chunks")
	return cmd
}

// questionArg joins the ask arguments and rejects a blank question.
func questionArg(args []string) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return "", fmt.Errorf("%w: please enter a question", errors.ErrInvalidInput)
	}
	return question, nil
}

func newAskCmd(root *rootOptions) *cobra.Command {
	var showTrace bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the indexed report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.settings, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			question, err := questionArg(args)
			if err != nil {
				return err
			}
			trace, err := a.agent.Run(ctx, question)
			if trace == nil {
				return err
			}
			if err != nil {
				a.logger.Warn("trace not persisted", "run_id", trace.RunID, "error", err)
			}
			out := cmd.OutOrStdout()
			if showTrace {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(trace)
			}
			fmt.Fprintln(out, trace.FinalAnswer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Print the full run trace as JSON")
	return cmd
}

// batchLine is one line of batch output.
type batchLine struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	RunID    string `json:"run_id,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Approved bool   `json:"approved"`
	Retries  int    `json:"retries"`
	Error    string `json:"error,omitempty"`
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		concurrency int
		sequential  bool
		stopOnError bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "batch <questions.txt|->",
		Short: "Answer one question per line and write JSONL results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tasks, err := readTasks(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			a, err := newApp(ctx, root.settings, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			var results []*runner.Result
			if sequential {
				results, err = runner.NewSequentialRunner(a.agent).RunSequential(ctx, tasks, stopOnError)
			} else {
				if concurrency <= 0 {
					concurrency = root.settings.LLM.MaxConcurrency
				}
				results = runner.NewParallelRunner(a.agent, concurrency).RunParallel(ctx, tasks)
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, ferr := os.Create(output)
				if ferr != nil {
					return ferr
				}
				defer f.Close()
				w = f
			}
			if werr := writeResults(w, results); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Questions in flight at once (default EWA_MAX_CONCURRENCY)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Answer questions one at a time")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "With --sequential, stop at the first failure")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write results to a file instead of stdout")
	return cmd
}

func readTasks(stdin io.Reader, path string) ([]*runner.Task, error) {
	if path == "-" {
		return runner.ReadTasks(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return runner.ReadTasks(f)
}

func writeResults(w io.Writer, results []*runner.Result) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if r == nil {
			continue
		}
		line := batchLine{ID: r.TaskID, Question: r.Question, Answer: r.Answer()}
		if r.Trace != nil {
			line.RunID = r.Trace.RunID
			line.Approved = r.Trace.Approved
			line.Retries = r.Trace.Retries
		}
		if r.Error != nil {
			line.Error = r.Error.Error()
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr    string
		mcpPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (and MCP over streamable HTTP)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.settings, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if addr == "" {
				addr = root.settings.HTTPAddr
			}
			opts := []server.Option{
				server.WithAddr(addr),
				server.WithMetrics(a.metrics),
				server.WithHistory(a.history),
			}
			if mcpPath != "" {
				mcpServer := mcp.NewServer(mcp.ServerInfo{Version: version}, a.agent, a.agent)
				opts = append(opts, server.WithHandler(mcpPath, mcp.Handler(mcpServer)))
			}
			return server.New(a.agent, a.pipeline, a.retriever, opts...).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default EWA_HTTP_ADDR)")
	cmd.Flags().StringVar(&mcpPath, "mcp-path", "/mcp", "Mount the MCP endpoint here; empty disables it")
	return cmd
}

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.settings, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return mcp.ServeStdio(ctx, mcp.NewServer(mcp.ServerInfo{Version: version}, a.agent, a.agent))
		},
	}
}
