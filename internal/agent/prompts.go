package agent

import (
	"fmt"
	"strings"
)

const decisionSystemPrompt = `You are an autonomous agent controlling a web browser.
You interact with the page ONLY through the tools listed below. You never see
the page directly; tool results are your only observations.

AVAILABLE TOOLS:
%s

RESPONSE FORMAT:
Reply with a SINGLE JSON object and nothing else:
{
  "thinking": "brief reasoning about the current state and the next step",
  "tool_calls": [{"tool": "tool_name", "arguments": {"param": "value"}}],
  "done": false,
  "summary": ""
}

RULES:
1. Issue AT MOST ONE tool call per response. Actions are order-dependent; the
   next one is decided only after you see this one's result.
2. When the task is complete, set "done": true, leave "tool_calls" empty and
   put a short description of what was accomplished in "summary".
3. A result starting with "Error:" means that call failed. Do not repeat it
   verbatim; adjust the arguments or take a different route.
4. Use only tool and parameter names from the list above.`

const summarySystemPrompt = `You summarize finished browser-automation runs.
Given the user's instruction and the ordered list of actions with their
results, reply with a short plain-text report of what was accomplished,
noting any failures. No JSON, no markdown.`

func buildDecisionSystemPrompt(toolListing string) string {
	return fmt.Sprintf(decisionSystemPrompt, strings.TrimRight(toolListing, "\n"))
}

func buildDecisionUserMessage(instruction string, history *History) string {
	var b strings.Builder
	b.WriteString("TASK: " + instruction + "\n")
	if history.Len() > 0 {
		b.WriteString("\nACTIONS SO FAR:\n" + history.String() + "\n")
	}
	b.WriteString("\nDecide the single next step.")
	return b.String()
}

func buildSummaryUserMessage(instruction string, records []ActionRecord) string {
	var b strings.Builder
	b.WriteString("TASK:\n" + instruction + "\n\nACTIONS:\n")
	for i, r := range records {
		status := "ok"
		if r.IsError {
			status = "failed"
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, r.Tool, status, r.Result)
	}
	return b.String()
}
