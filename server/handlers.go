package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/rag/agentic"
)

const defaultRunsLimit = 20

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse carries the answer and the full run trace.
type AskResponse struct {
	RunID      string                   `json:"run_id"`
	Answer     string                   `json:"answer"`
	Approved   bool                     `json:"approved"`
	Retries    int                      `json:"retries"`
	Evaluation *agentic.EvaluationScore `json:"evaluation,omitempty"`
	Trace      *agentic.Trace           `json:"trace"`
	Warning    string                   `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.index != nil {
		n, err := s.index.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		body["chunks"] = n
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}
	ctx := c.Request.Context()
	if err := s.requireIndex(ctx); err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	trace, err := s.agent.Run(ctx, req.Question)
	if trace == nil {
		if err == nil {
			err = errors.ErrInternal
		}
		s.cfg.logger.Error("agent run failed", "error", err)
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	resp := AskResponse{
		RunID:      trace.RunID,
		Answer:     trace.FinalAnswer,
		Approved:   trace.Approved,
		Retries:    trace.Retries,
		Evaluation: trace.Evaluation(),
		Trace:      trace,
	}
	if err != nil {
		// the answer is valid, only persisting the trace failed
		s.cfg.logger.Warn("trace not persisted", "run_id", trace.RunID, "error", err)
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requireIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	n, err := s.index.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNoDocuments
	}
	return nil
}

func (s *Server) uploadReport(c *gin.Context) {
	if s.ingester == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "report upload disabled"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart field \"file\" is required"})
		return
	}

	dir, err := os.MkdirTemp(s.cfg.UploadDir, "ewa-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.ingester.Run(c.Request.Context(), path)
	if err != nil {
		s.cfg.logger.Error("report ingestion failed", "file", file.Filename, "error", err)
		status := statusFor(err)
		if stderrors.Is(err, errors.ErrNoDocuments) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}
	res.Path = file.Filename
	c.JSON(http.StatusCreated, res)
}

func (s *Server) runs(c *gin.Context) {
	if s.cfg.history == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "run history not configured"})
		return
	}
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	traces, err := s.cfg.history(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if traces == nil {
		traces = []agentic.Trace{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": traces})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case stderrors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrNoDocuments):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case stderrors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
