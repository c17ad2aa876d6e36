package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Disable: true})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitStdoutExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName: "ewa-agent-test",
		Stdout:      true,
		Writer:      &buf,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	End(span, errors.New("stage failed"))

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("stage failed")) {
		t.Fatalf("expected exported span with error, got %s", buf.String())
	}
}

func TestEndNilSpan(t *testing.T) {
	End(nil, nil)
}
