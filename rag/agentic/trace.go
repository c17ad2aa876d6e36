package agentic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// Stage names used in traces, logs and spans.
const (
	StageReasoning   = "reasoning"
	StageToolCalling = "tool_calling"
	StageGeneration  = "generation"
	StageReflection  = "reflection"
	StageEvaluation  = "evaluation"
)

// TimestampLayout is the UTC layout of Trace.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Trace is the execution record of one agent run. It is written as a single
// JSON line to the durable log.
type Trace struct {
	RunID        string  `json:"run_id"`
	Timestamp    string  `json:"timestamp"`
	Question     string  `json:"question"`
	Approved     bool    `json:"approved"`
	Retries      int     `json:"retries"`
	Stages       Stages  `json:"stages"`
	FinalAnswer  string  `json:"final_answer"`
	TotalTimeSec float64 `json:"total_time_sec"`
}

// Evaluation returns the score of the final answer, nil when none was parsed.
func (t *Trace) Evaluation() *EvaluationScore {
	if t == nil || t.Stages.Evaluation == nil {
		return nil
	}
	return t.Stages.Evaluation.EvaluationOutput
}

// Stages holds the per-stage records. In JSON the iterations are flattened
// into "iteration_1", "iteration_2", ... keys between reasoning and evaluation.
type Stages struct {
	Reasoning  *ReasoningStage
	Iterations []Iteration
	Evaluation *EvaluationStage
}

// MarshalJSON writes the stages with a stable key order.
func (s Stages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal stage %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}
	if s.Reasoning != nil {
		if err := write(StageReasoning, s.Reasoning); err != nil {
			return nil, err
		}
	}
	for i := range s.Iterations {
		if err := write(IterationKey(i+1), s.Iterations[i]); err != nil {
			return nil, err
		}
	}
	if s.Evaluation != nil {
		if err := write(StageEvaluation, s.Evaluation); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads stages written by MarshalJSON.
func (s *Stages) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Stages{}
	if v, ok := raw[StageReasoning]; ok {
		s.Reasoning = &ReasoningStage{}
		if err := json.Unmarshal(v, s.Reasoning); err != nil {
			return fmt.Errorf("unmarshal reasoning: %w", err)
		}
	}
	for i := 1; ; i++ {
		v, ok := raw[IterationKey(i)]
		if !ok {
			break
		}
		var it Iteration
		if err := json.Unmarshal(v, &it); err != nil {
			return fmt.Errorf("unmarshal %s: %w", IterationKey(i), err)
		}
		s.Iterations = append(s.Iterations, it)
	}
	if v, ok := raw[StageEvaluation]; ok {
		s.Evaluation = &EvaluationStage{}
		if err := json.Unmarshal(v, s.Evaluation); err != nil {
			return fmt.Errorf("unmarshal evaluation: %w", err)
		}
	}
	return nil
}

// IterationKey returns the stages key of the n-th iteration (1-based).
func IterationKey(n int) string {
	return "iteration_" + strconv.Itoa(n)
}

// ReasoningStage records the decision.
type ReasoningStage struct {
	RawOutput    json.RawMessage `json:"raw_output"`
	ToolSelected string          `json:"tool_selected"`
	Parameters   ToolParameters  `json:"parameters"`
	Fallback     bool            `json:"fallback,omitempty"`
	TimeSec      float64         `json:"time_sec"`
}

// Iteration records one tool-generate-reflect round.
type Iteration struct {
	ToolCalling ToolCallingStage `json:"tool_calling"`
	Generation  GenerationStage  `json:"generation"`
	Reflection  ReflectionStage  `json:"reflection"`
	Retry       RetryStage       `json:"retry"`
}

// RetrievedDocument is the metadata of a retrieved chunk, without content.
type RetrievedDocument struct {
	Page     int               `json:"page"`
	Section  string            `json:"section"`
	Severity document.Severity `json:"severity"`
}

// ToolCallingStage records a findings tool invocation.
type ToolCallingStage struct {
	ParametersUsed     ToolParameters      `json:"parameters_used"`
	RetrievedCount     int                 `json:"retrieved_count"`
	RetrievedDocuments []RetrievedDocument `json:"retrieved_documents"`
	TimeSec            float64             `json:"time_sec"`
}

// GenerationStage records an answer generation. Lengths count characters.
type GenerationStage struct {
	ContextLengthChars int     `json:"context_length_chars"`
	ContextTokens      int     `json:"context_tokens,omitempty"`
	AnswerLengthChars  int     `json:"answer_length_chars"`
	AnswerPreview      string  `json:"answer_preview"`
	TimeSec            float64 `json:"time_sec"`
}

// ReflectionStage records a reflection verdict.
type ReflectionStage struct {
	ReflectionOutput json.RawMessage `json:"reflection_output"`
	Approved         bool            `json:"approved"`
	Fallback         bool            `json:"fallback,omitempty"`
	TimeSec          float64         `json:"time_sec"`
}

// RetryStage records whether a retry followed and with which parameters.
type RetryStage struct {
	RetryTriggered    bool            `json:"retry_triggered"`
	RetryParameters   json.RawMessage `json:"retry_parameters,omitempty"`
	UpdatedParameters *ToolParameters `json:"updated_parameters,omitempty"`
}

// EvaluationStage records the final scoring. A missing score is written as {}.
type EvaluationStage struct {
	EvaluationOutput *EvaluationScore
	Fallback         bool
	TimeSec          float64
}

type evaluationStageJSON struct {
	EvaluationOutput json.RawMessage `json:"evaluation_output"`
	Fallback         bool            `json:"fallback,omitempty"`
	TimeSec          float64         `json:"time_sec"`
}

// MarshalJSON implements json.Marshaler.
func (e EvaluationStage) MarshalJSON() ([]byte, error) {
	out := evaluationStageJSON{
		EvaluationOutput: json.RawMessage("{}"),
		Fallback:         e.Fallback,
		TimeSec:          e.TimeSec,
	}
	if e.EvaluationOutput != nil {
		data, err := json.Marshal(e.EvaluationOutput)
		if err != nil {
			return nil, err
		}
		out.EvaluationOutput = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *EvaluationStage) UnmarshalJSON(data []byte) error {
	var in evaluationStageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = EvaluationStage{Fallback: in.Fallback, TimeSec: in.TimeSec}
	trimmed := strings.TrimSpace(string(in.EvaluationOutput))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return nil
	}
	var score EvaluationScore
	if err := json.Unmarshal(in.EvaluationOutput, &score); err != nil {
		return fmt.Errorf("unmarshal evaluation output: %w", err)
	}
	e.EvaluationOutput = &score
	return nil
}

func retrievedDocuments(chunks []document.Chunk) []RetrievedDocument {
	out := make([]RetrievedDocument, len(chunks))
	for i, chunk := range chunks {
		out[i] = RetrievedDocument{Page: chunk.Page, Section: chunk.Section, Severity: chunk.Severity}
	}
	return out
}

// seconds rounds d to hundredths of a second.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}
