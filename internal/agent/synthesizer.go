package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/copaw/webagent/internal/llm"
)

// Synthesizer produces the human-readable report for a finished run.
type Synthesizer struct {
	model  llm.Client
	logger *slog.Logger
}

func NewSynthesizer(model llm.Client, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{model: model, logger: logger}
}

// Summarize asks the model for a short synthesis of the run. Synthesis
// failure never fails the run: the fallback is the deterministic
// numbered action list.
func (s *Synthesizer) Summarize(ctx context.Context, instruction string, records []ActionRecord) string {
	resp, err := s.model.CreateChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: summarySystemPrompt},
			{Role: llm.RoleUser, Content: buildSummaryUserMessage(instruction, records)},
		},
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		s.logger.Warn("summary generation failed, using action list", "error", err)
		return fallbackSummary(records)
	}
	return strings.TrimSpace(resp.Content)
}

func fallbackSummary(records []ActionRecord) string {
	if len(records) == 0 {
		return "No actions were taken."
	}
	var b strings.Builder
	b.WriteString("Actions taken:\n")
	for i, r := range records {
		status := ""
		if r.IsError {
			status = " (failed)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, r.Tool, status)
	}
	return strings.TrimRight(b.String(), "\n")
}
