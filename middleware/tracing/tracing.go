package tracing

import (
	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/middleware"
	"github.com/sweetpotato0/ewa-agent/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sweetpotato0/ewa-agent/middleware/tracing"

// Tracer opens one span per oracle call.
type Tracer struct {
	tracer trace.Tracer
	model  string
}

// New creates a tracing middleware labelled with the model name.
func New(model string) *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName), model: model}
}

// Name returns the middleware name
func (m *Tracer) Name() string {
	return "Tracer"
}

// Execute wraps the call in a span.
func (m *Tracer) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	parent := ctx.Context()
	spanCtx, span := m.tracer.Start(parent, "oracle.generate",
		trace.WithAttributes(
			attribute.String("oracle.model", m.model),
			attribute.String("agent.stage", agent.StageFromContext(parent)),
		),
	)
	defer func() { telemetry.End(span, err) }()

	ctx.SetContext(spanCtx)
	defer ctx.SetContext(parent)

	err = next(ctx)
	if err == nil && ctx.Response != nil {
		span.SetAttributes(
			attribute.Int("oracle.reply_chars", len(ctx.Response.Message.Text())),
			attribute.Int64("oracle.prompt_tokens", ctx.Response.Usage.PromptTokens),
			attribute.Int64("oracle.completion_tokens", ctx.Response.Usage.CompletionTokens),
		)
	}
	return err
}
