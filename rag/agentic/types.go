package agentic

import (
	"encoding/json"
	"strings"

	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// ToolParameters are the arguments of the findings tool. Values are
// snapshots: every iteration gets its own copy.
type ToolParameters struct {
	Question string `json:"question"`
	// K is the number of chunks to retrieve. Zero means unset and the tool
	// applies its default.
	K        int                `json:"k,omitempty"`
	Severity *document.Severity `json:"severity"`
}

// Clone returns an independent copy of p.
func (p ToolParameters) Clone() ToolParameters {
	out := p
	if p.Severity != nil {
		sev := *p.Severity
		out.Severity = &sev
	}
	return out
}

// SeverityLabel returns the requested severity or "" when no filter is set.
func (p ToolParameters) SeverityLabel() string {
	if p.Severity == nil {
		return ""
	}
	return string(*p.Severity)
}

// Decision is the tool invocation chosen by the decision stage.
type Decision struct {
	Action     string         `json:"action"`
	Parameters ToolParameters `json:"parameters"`
	// Fallback is set when the oracle reply could not be parsed and the
	// default decision was used instead.
	Fallback bool   `json:"-"`
	Raw      string `json:"-"`
}

// RetryPatch is the parameter delta requested by a rejecting reflection.
// Fields that were absent from the reply stay nil and leave the previous
// value untouched. SeveritySet distinguishes an explicit null (clear the
// filter) from an absent key.
type RetryPatch struct {
	K           *int
	Severity    *document.Severity
	SeveritySet bool
}

// MarshalJSON writes only the keys the reflection supplied.
func (p RetryPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if p.K != nil {
		out["k"] = *p.K
	}
	if p.SeveritySet {
		out["severity"] = p.Severity
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (p *RetryPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = patchFromRaw(raw)
	return nil
}

// ReflectionVerdict is the outcome of the reflection stage.
type ReflectionVerdict struct {
	Approved  bool        `json:"approved"`
	RetryWith *RetryPatch `json:"retry_with,omitempty"`
}

// EvaluationScore holds the 1..5 quality scores of the final answer.
type EvaluationScore struct {
	Accuracy     int      `json:"accuracy"`
	Relevance    int      `json:"relevance"`
	Completeness int      `json:"completeness"`
	Clarity      int      `json:"clarity"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// ApplyRetry merges a retry patch into the previous parameters and returns
// the parameters for the next iteration. K is only taken when positive;
// severity is taken as given, nil included. prev is not modified.
func ApplyRetry(prev ToolParameters, patch *RetryPatch) ToolParameters {
	next := prev.Clone()
	if patch == nil {
		return next
	}
	if patch.K != nil && *patch.K > 0 {
		next.K = *patch.K
	}
	if patch.SeveritySet {
		next.Severity = nil
		if patch.Severity != nil {
			sev := *patch.Severity
			next.Severity = &sev
		}
	}
	return next
}

// normalizeSeverity upper-cases a requested severity label. Blank labels
// mean no filter.
func normalizeSeverity(raw string) *document.Severity {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if label == "" {
		return nil
	}
	sev := document.Severity(label)
	return &sev
}
