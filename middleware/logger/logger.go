package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/middleware"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
)

// CallLogger logs every oracle call with its stage, prompt size and latency.
type CallLogger struct {
	logger *slog.Logger
}

// NewCallLogger creates a logging middleware. A nil logger uses the shared one.
func NewCallLogger(logger *slog.Logger) *CallLogger {
	if logger == nil {
		logger = logging.WithComponent("oracle")
	}
	return &CallLogger{logger: logger}
}

// Name returns the middleware name
func (m *CallLogger) Name() string {
	return "CallLogger"
}

// Execute logs the request and its outcome.
func (m *CallLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	stage := agent.StageFromContext(ctx.Context())
	promptChars := 0
	if ctx.Request != nil {
		for _, msg := range ctx.Request.Messages {
			promptChars += len(msg.Text())
		}
	}
	m.logger.Debug("oracle call started", "stage", stage, "prompt_chars", promptChars)

	start := time.Now()
	err := next(ctx)
	elapsed := time.Since(start)
	if err != nil {
		m.logger.Error("oracle call failed", "stage", stage, "error", err, "elapsed", elapsed)
		return err
	}
	replyChars := 0
	if ctx.Response != nil {
		replyChars = len(ctx.Response.Message.Text())
	}
	m.logger.Debug("oracle call completed", "stage", stage, "reply_chars", replyChars, "elapsed", elapsed)
	return nil
}
