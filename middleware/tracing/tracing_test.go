package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/message"
	"github.com/sweetpotato0/ewa-agent/middleware"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestTracerRecordsStageAndUsage(t *testing.T) {
	rec := newRecorder(t)

	req := &agent.GenerateRequest{Messages: []*message.Message{message.NewMessage(message.RoleUser, "prompt")}}
	ctx := middleware.NewContext(agent.WithStage(context.Background(), "reflection"), req)
	err := New("mistral").Execute(ctx, func(c *middleware.Context) error {
		c.Response = &agent.GenerateResponse{
			Message: message.NewMessage(message.RoleAssistant, `{"approved": true}`),
			Usage:   agent.Usage{PromptTokens: 12, CompletionTokens: 4},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "oracle.generate" {
		t.Fatalf("expected one oracle span, got %d", len(spans))
	}
	if scope := spans[0].InstrumentationScope().Name; scope != tracerName {
		t.Fatalf("unexpected tracer scope %q", scope)
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["agent.stage"] != "reflection" || attrs["oracle.model"] != "mistral" || attrs["oracle.prompt_tokens"] != "12" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}

func TestTracerMarksErrors(t *testing.T) {
	rec := newRecorder(t)
	boom := errors.New("boom")

	ctx := middleware.NewContext(context.Background(), &agent.GenerateRequest{})
	err := New("m").Execute(ctx, func(*middleware.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected errored span, got %+v", spans)
	}
	if ctx.Context() != context.Background() {
		t.Fatal("expected parent context restored")
	}
}
