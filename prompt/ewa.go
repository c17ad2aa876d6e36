package prompt

// Names of the agent loop templates.
const (
	Decision   = "decision"
	Generation = "generation"
	Reflection = "reflection"
	Evaluation = "evaluation"
)

// NotFoundAnswer is the literal the generation prompt asks for when the
// report does not support an answer.
const NotFoundAnswer = "Not found in the report."

// DecisionTemplate variables: Tool, Question.
const DecisionTemplate = `
You are an SAP AI agent.

Available tools:
1. {{.Tool}}

Return ONLY valid JSON:
{
  "action": "...",
  "parameters": {
      "question": "...",
      "k": int,
      "severity": string or null
  }
}


User question:
{{.Question}}`

// GenerationTemplate variables: Context, Question.
const GenerationTemplate = `
You are an SAP consultant.

Answer ONLY using the provided context.
If unsupported, respond: ` + NotFoundAnswer + `

Context:
{{.Context}}

Question:
{{.Question}}

Answer:
`

// ReflectionTemplate variables: Question, Answer, Context.
const ReflectionTemplate = `
Evaluate the SAP answer.

Return JSON:
{
  "approved": true/false,
  "retry_with": {
      "k": int,
      "severity": string or null
  }
}

Question:
{{.Question}}

Answer:
{{.Answer}}
`

// EvaluationTemplate variables: Question, Answer, Context.
const EvaluationTemplate = `
Score the SAP answer from 1–5.

Return JSON:
{
 "accuracy": int,
 "relevance": int,
 "completeness": int,
 "clarity": int,
 "confidence": float
}

Question:
{{.Question}}

Answer:
{{.Answer}}
`

// Defaults returns a manager holding the four agent loop templates.
func Defaults() *Manager {
	m := NewManager()
	for name, content := range map[string]string{
		Decision:   DecisionTemplate,
		Generation: GenerationTemplate,
		Reflection: ReflectionTemplate,
		Evaluation: EvaluationTemplate,
	} {
		if err := m.RegisterString(name, content); err != nil {
			panic(err)
		}
	}
	return m
}
