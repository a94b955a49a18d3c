package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionRecord is one executed (or failed) tool invocation.
type ActionRecord struct {
	Tool      string
	Arguments map[string]any
	Result    string
	IsError   bool
}

// History is the append-only action record for one run. Results are
// truncated to a fixed byte budget before they enter the record so the
// conversational context stays bounded; entries are never mutated.
type History struct {
	budget  int
	records []ActionRecord
}

const defaultResultBudget = 2000

func NewHistory(budget int) *History {
	if budget <= 0 {
		budget = defaultResultBudget
	}
	return &History{budget: budget}
}

func (h *History) Append(tool string, args map[string]any, result string) {
	h.records = append(h.records, ActionRecord{
		Tool:      tool,
		Arguments: args,
		Result:    truncate(result, h.budget),
	})
}

func (h *History) AppendError(tool string, args map[string]any, err error) {
	h.records = append(h.records, ActionRecord{
		Tool:      tool,
		Arguments: args,
		Result:    truncate("Error: "+err.Error(), h.budget),
		IsError:   true,
	})
}

func (h *History) Len() int { return len(h.records) }

func (h *History) Records() []ActionRecord {
	out := make([]ActionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Lines renders the record as numbered context lines for the model.
func (h *History) Lines() []string {
	lines := make([]string, 0, len(h.records))
	for i, r := range h.records {
		args, _ := json.Marshal(r.Arguments)
		lines = append(lines, fmt.Sprintf("%d. %s(%s) -> %s", i+1, r.Tool, args, r.Result))
	}
	return lines
}

func (h *History) String() string {
	return strings.Join(h.Lines(), "\n")
}

func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	return s[:budget] + "...[truncated]"
}
