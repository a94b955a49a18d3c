package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecisionToolCall is one candidate tool invocation inside a Decision.
type DecisionToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Decision is one model consultation result: reasoning, zero or more
// candidate tool calls, and an explicit completion signal. Summary is
// only meaningful when Done is true.
type Decision struct {
	Thinking  string             `json:"thinking"`
	ToolCalls []DecisionToolCall `json:"tool_calls"`
	Done      bool               `json:"done"`
	Summary   string             `json:"summary,omitempty"`
}

// ParseDecision decodes a model reply into a Decision. Models wrap JSON
// in code fences or prose often enough that a strict parse alone is not
// reliable; on failure the first balanced JSON span is re-parsed.
func ParseDecision(content string) (*Decision, error) {
	trimmed := strings.Trim(strings.TrimSpace(content), "`")
	trimmed = strings.TrimPrefix(trimmed, "json")

	var d Decision
	if err := json.Unmarshal([]byte(trimmed), &d); err == nil {
		return &d, nil
	}

	span, ok := ExtractJSON(content)
	if !ok {
		return nil, fmt.Errorf("decision is not valid JSON: %q", snippet(content))
	}
	if err := json.Unmarshal([]byte(span), &d); err != nil {
		return nil, fmt.Errorf("decision JSON span did not parse: %w", err)
	}
	return &d, nil
}

func snippet(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
