package agentic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/pkg/telemetry"
	"github.com/sweetpotato0/ewa-agent/rag/document"
)

var tracer = otel.Tracer("github.com/sweetpotato0/ewa-agent/rag/agentic")

// TraceSink receives every completed trace.
type TraceSink interface {
	Append(ctx context.Context, record any) error
}

// Clients groups the LLM clients used by the different stages.
// Stage clients left nil use Default.
type Clients struct {
	Default    agent.LLMClient
	Decision   agent.LLMClient
	Generation agent.LLMClient
	Reflection agent.LLMClient
	Evaluation agent.LLMClient
}

// Agent runs the question answering loop:
//  1. reasoning picks the tool parameters
//  2. up to MaxRetries+1 iterations of retrieve, generate and reflect
//  3. evaluation of the final answer
//
// Every run produces a Trace which is appended to the configured sink.
type Agent struct {
	cfg       *Config
	tool      *FindingsTool
	decider   *decider
	generator *generator
	reflector *reflector
	evaluator *evaluator
	logger    *slog.Logger
}

// New creates an agent reading findings from store.
func New(clients Clients, store Store, opts ...Option) (*Agent, error) {
	cfg := applyOptions(nil, opts)

	stages := map[string]agent.LLMClient{
		StageReasoning:  pickClient(clients.Decision, clients.Default),
		StageGeneration: pickClient(clients.Generation, clients.Default),
		StageReflection: pickClient(clients.Reflection, clients.Default),
		StageEvaluation: pickClient(clients.Evaluation, clients.Default),
	}
	for stage, llm := range stages {
		if llm == nil {
			return nil, fmt.Errorf("%s client is required", stage)
		}
	}
	if store == nil {
		return nil, fmt.Errorf("retrieval store is required")
	}

	a := &Agent{
		cfg:       cfg,
		tool:      NewFindingsTool(store, cfg.DefaultK, cfg.FetchK),
		decider:   newDecider(stages[StageReasoning], cfg),
		generator: newGenerator(stages[StageGeneration], cfg),
		reflector: newReflector(stages[StageReflection], cfg),
		evaluator: newEvaluator(stages[StageEvaluation], cfg),
		logger:    logging.WithComponent("agent_loop").With("agent", cfg.Name),
	}
	a.logger.Info("agent initialised",
		"max_retries", cfg.MaxRetries,
		"default_k", cfg.DefaultK,
		"fetch_k", cfg.FetchK,
		"reflection_fallback", cfg.ReflectionFallback,
	)
	return a, nil
}

func pickClient(primary, fallback agent.LLMClient) agent.LLMClient {
	if primary != nil {
		return primary
	}
	return fallback
}

// Config returns a copy of the agent configuration.
func (a *Agent) Config() Config {
	return *a.cfg
}

// Run answers question. Oracle and store failures abort the run and no trace
// is written. A failing sink returns the completed trace together with the
// error.
func (a *Agent) Run(ctx context.Context, question string) (tr *Trace, err error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.run_id", runID),
		attribute.String("agent.name", a.cfg.Name),
	))
	defer func() { telemetry.End(span, err) }()

	logger := a.logger.With("run_id", runID)
	logger.Info("agent run started", "question", logging.Truncate(question, 120))

	start := a.cfg.now()
	tr = &Trace{
		RunID:     runID,
		Timestamp: start.UTC().Format(TimestampLayout),
		Question:  question,
	}

	decision, reasoning, err := a.reason(ctx, question)
	if err != nil {
		a.observeFailure(logger, err)
		return nil, err
	}
	tr.Stages.Reasoning = reasoning
	if decision.Action != a.cfg.ToolName {
		logger.Warn("decision selected an unknown tool, running findings tool anyway",
			"action", decision.Action, "tool", a.cfg.ToolName)
	}

	params := decision.Parameters.Clone()
	var answer, contextText string
	approved := false
	retries := 0
	for retries <= a.cfg.MaxRetries && !approved {
		var it Iteration
		var next ToolParameters
		answer, contextText, approved, next, it, err = a.iterate(ctx, logger, question, params, len(tr.Stages.Iterations)+1)
		if err != nil {
			a.observeFailure(logger, err)
			return nil, err
		}
		if !approved {
			retries++
			params = next
		}
		tr.Stages.Iterations = append(tr.Stages.Iterations, it)
	}
	tr.Approved = approved
	tr.Retries = retries
	tr.FinalAnswer = answer

	tr.Stages.Evaluation, err = a.evaluate(ctx, question, answer, contextText)
	if err != nil {
		a.observeFailure(logger, err)
		return nil, err
	}
	total := a.cfg.now().Sub(start)
	tr.TotalTimeSec = seconds(total)

	a.observeRun(tr, total)
	span.SetAttributes(
		attribute.Bool("agent.approved", tr.Approved),
		attribute.Int("agent.retries", tr.Retries),
	)
	logger.Info("agent run completed",
		"approved", tr.Approved,
		"retries", tr.Retries,
		"iterations", len(tr.Stages.Iterations),
		"total_time_sec", tr.TotalTimeSec,
	)

	if a.cfg.sink != nil {
		if err = a.cfg.sink.Append(ctx, tr); err != nil {
			logger.Error("append trace failed", "error", err)
			return tr, fmt.Errorf("append trace: %w", err)
		}
	}
	return tr, nil
}

func (a *Agent) reason(ctx context.Context, question string) (Decision, *ReasoningStage, error) {
	ctx, span := tracer.Start(ctx, "agent."+StageReasoning)
	start := a.cfg.now()
	decision, err := a.decider.Decide(ctx, question)
	telemetry.End(span, err)
	if err != nil {
		return Decision{}, nil, err
	}
	elapsed := a.cfg.now().Sub(start)
	a.observeStage(StageReasoning, elapsed)

	if decision.Fallback {
		a.logger.Warn("decision reply unusable, using fallback", "reply", logging.Truncate(decision.Raw, 200))
	}
	return decision, &ReasoningStage{
		RawOutput:    decisionOutput(decision),
		ToolSelected: decision.Action,
		Parameters:   decision.Parameters.Clone(),
		Fallback:     decision.Fallback,
		TimeSec:      seconds(elapsed),
	}, nil
}

// iterate runs one round and returns the parameters for the next round.
func (a *Agent) iterate(ctx context.Context, logger *slog.Logger, question string, params ToolParameters, n int) (answer, contextText string, approved bool, next ToolParameters, it Iteration, err error) {
	ctx, span := tracer.Start(ctx, "agent.iteration", trace.WithAttributes(
		attribute.Int("agent.iteration", n),
	))
	defer func() { telemetry.End(span, err) }()

	snapshot := params.Clone()
	start := a.cfg.now()
	chunks, err := a.tool.Execute(agent.WithStage(ctx, StageToolCalling), snapshot)
	if err != nil {
		return "", "", false, params, it, err
	}
	elapsed := a.cfg.now().Sub(start)
	a.observeStage(StageToolCalling, elapsed)
	if a.cfg.metrics != nil {
		a.cfg.metrics.Retrieved.Observe(float64(len(chunks)))
	}
	it.ToolCalling = ToolCallingStage{
		ParametersUsed:     snapshot,
		RetrievedCount:     len(chunks),
		RetrievedDocuments: retrievedDocuments(chunks),
		TimeSec:            seconds(elapsed),
	}
	logger.Debug("findings retrieved", "iteration", n, "k", snapshot.K, "severity", snapshot.SeverityLabel(), "count", len(chunks))

	start = a.cfg.now()
	answer, contextText, err = a.generator.Generate(ctx, question, chunks)
	if err != nil {
		return "", "", false, params, it, err
	}
	elapsed = a.cfg.now().Sub(start)
	a.observeStage(StageGeneration, elapsed)
	it.Generation = GenerationStage{
		ContextLengthChars: runeCount(contextText),
		AnswerLengthChars:  runeCount(answer),
		AnswerPreview:      truncateRunes(answer, a.cfg.PreviewChars),
		TimeSec:            seconds(elapsed),
	}
	if a.cfg.tokens != nil {
		it.Generation.ContextTokens = a.cfg.tokens.CountTokens(contextText)
	}

	start = a.cfg.now()
	reflection, err := a.reflector.Reflect(ctx, question, answer, contextText)
	if err != nil {
		return "", "", false, params, it, err
	}
	elapsed = a.cfg.now().Sub(start)
	a.observeStage(StageReflection, elapsed)
	approved = reflection.Verdict.Approved
	it.Reflection = ReflectionStage{
		ReflectionOutput: reflection.Output,
		Approved:         approved,
		Fallback:         reflection.Fallback,
		TimeSec:          seconds(elapsed),
	}
	if reflection.Fallback {
		logger.Warn("reflection reply unusable, using fallback verdict",
			"approved", approved, "reply", logging.Truncate(reflection.Raw, 200))
	}

	next = params
	if approved {
		it.Retry = RetryStage{RetryTriggered: false}
	} else {
		next = ApplyRetry(params, reflection.Verdict.RetryWith)
		retryParams := reflection.RetryParameters
		if len(retryParams) == 0 {
			retryParams = json.RawMessage("{}")
		}
		updated := next.Clone()
		it.Retry = RetryStage{
			RetryTriggered:    true,
			RetryParameters:   retryParams,
			UpdatedParameters: &updated,
		}
		if a.cfg.metrics != nil {
			a.cfg.metrics.RetriesTotal.Inc()
		}
		logger.Info("answer rejected", "iteration", n, "next_k", next.K, "next_severity", next.SeverityLabel())
	}
	span.SetAttributes(attribute.Bool("agent.approved", approved), attribute.Int("agent.retrieved", len(chunks)))
	return answer, contextText, approved, next, it, nil
}

func (a *Agent) evaluate(ctx context.Context, question, answer, contextText string) (*EvaluationStage, error) {
	ctx, span := tracer.Start(ctx, "agent."+StageEvaluation)
	start := a.cfg.now()
	score, raw, err := a.evaluator.Evaluate(ctx, question, answer, contextText)
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}
	elapsed := a.cfg.now().Sub(start)
	a.observeStage(StageEvaluation, elapsed)
	if score == nil {
		a.logger.Warn("evaluation reply unusable", "reply", logging.Truncate(raw, 200))
	}
	return &EvaluationStage{
		EvaluationOutput: score,
		Fallback:         score == nil,
		TimeSec:          seconds(elapsed),
	}, nil
}

// decisionOutput is the decision as recorded in the trace: the parsed reply,
// or the fallback decision when the reply was unusable.
func decisionOutput(d Decision) json.RawMessage {
	if !d.Fallback {
		if clean := sanitizeJSON(d.Raw); json.Valid([]byte(clean)) {
			return json.RawMessage(clean)
		}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func (a *Agent) observeStage(stage string, d time.Duration) {
	if a.cfg.metrics == nil {
		return
	}
	a.cfg.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (a *Agent) observeRun(tr *Trace, d time.Duration) {
	if a.cfg.metrics == nil {
		return
	}
	outcome := "rejected"
	if tr.Approved {
		outcome = "approved"
	}
	a.cfg.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	a.cfg.metrics.RunDuration.Observe(d.Seconds())
}

func (a *Agent) observeFailure(logger *slog.Logger, err error) {
	logger.Error("agent run failed", "error", err)
	if a.cfg.metrics != nil {
		a.cfg.metrics.RunsTotal.WithLabelValues("error").Inc()
	}
}

// Chunks is a convenience for callers that only need the findings of a
// question, without generation.
func (a *Agent) Chunks(ctx context.Context, params ToolParameters) ([]document.Chunk, error) {
	return a.tool.Execute(ctx, params)
}
