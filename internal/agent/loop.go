// Package agent drives the decide-then-execute control loop: ask the
// model for the single next tool call, run it against the tool server,
// feed the result back, and stop on explicit completion, implicit
// completion, or the iteration bound.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/copaw/webagent/internal/llm"
	"github.com/copaw/webagent/internal/toolserver"
)

// Outcome is the terminal state of one run.
type Outcome string

const (
	OutcomeDone          Outcome = "done"
	OutcomeMaxIterations Outcome = "max_iterations"
	OutcomeInterrupted   Outcome = "interrupted"
)

const (
	// DefaultMaxIterations bounds unattended runs.
	DefaultMaxIterations = 20
	// InteractiveMaxIterations bounds single commands in an
	// interactive session.
	InteractiveMaxIterations = 10
)

type Config struct {
	MaxIterations  int
	ResultBudget   int // bytes of tool output kept per action record
	Temperature    float32
	MaxTokens      int
	MaxRetries     int    // model request retries per decision
	ScreenshotPath string // when set, screenshot tool output is persisted here

	// Interrupted is polled at the top of every iteration; returning
	// true stops the run with OutcomeInterrupted. The loop is strictly
	// sequential, so an in-flight tool call always completes first.
	Interrupted func() bool
}

// RunResult is what a terminated loop reports.
type RunResult struct {
	Outcome    Outcome
	Summary    string // model-provided, only when the model signaled done
	Records    []ActionRecord
	Iterations int
	Usage      llm.Usage
}

type Loop struct {
	tools  toolserver.Caller
	model  llm.Client
	cfg    Config
	logger *slog.Logger

	systemPrompt string
}

// NewLoop wires a loop to a connected tool server and a model client.
// A tool server exposing zero tools is a precondition failure.
func NewLoop(tools toolserver.Caller, model llm.Client, cfg Config, logger *slog.Logger) (*Loop, error) {
	descriptors := tools.Tools()
	if len(descriptors) == 0 {
		return nil, &toolserver.ConnectionError{Reason: "tool server exposed no tools"}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		tools:        tools,
		model:        model,
		cfg:          cfg,
		logger:       logger,
		systemPrompt: buildDecisionSystemPrompt(listTools(descriptors)),
	}, nil
}

func listTools(descriptors []toolserver.ToolDescriptor) string {
	var b strings.Builder
	for _, d := range descriptors {
		fmt.Fprintf(&b, "- %s: %s", d.Name, d.Description)
		if len(d.Properties) > 0 {
			parts := make([]string, 0, len(d.Properties))
			for _, req := range d.Required {
				if hint, ok := d.Properties[req]; ok {
					parts = append(parts, fmt.Sprintf("%s: %s (required)", req, hint))
				}
			}
			for name, hint := range d.Properties {
				if !contains(d.Required, name) {
					parts = append(parts, fmt.Sprintf("%s: %s", name, hint))
				}
			}
			fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Run executes the loop for one instruction until a terminal state.
// Tool failures are absorbed into the action record; model failures
// (after the adapter's retries) propagate and end the run.
func (l *Loop) Run(ctx context.Context, instruction string) (*RunResult, error) {
	history := NewHistory(l.cfg.ResultBudget)
	var usage llm.Usage

	for iteration := 1; iteration <= l.cfg.MaxIterations; iteration++ {
		if l.cfg.Interrupted != nil && l.cfg.Interrupted() {
			l.logger.Info("interrupt requested, stopping", "iteration", iteration)
			return &RunResult{
				Outcome:    OutcomeInterrupted,
				Records:    history.Records(),
				Iterations: iteration - 1,
				Usage:      usage,
			}, nil
		}

		decision, u, err := l.decide(ctx, instruction, history)
		if err != nil {
			return nil, err
		}
		addUsage(&usage, u)

		if decision.Thinking != "" {
			l.logger.Info("decision", "iteration", iteration, "thinking", decision.Thinking)
		}

		if decision.Done {
			return &RunResult{
				Outcome:    OutcomeDone,
				Summary:    decision.Summary,
				Records:    history.Records(),
				Iterations: iteration,
				Usage:      usage,
			}, nil
		}

		if len(decision.ToolCalls) == 0 {
			// Nothing further to do; treat as completion instead of
			// consulting the model forever.
			l.logger.Info("model returned no tool call; finishing", "iteration", iteration)
			return &RunResult{
				Outcome:    OutcomeDone,
				Summary:    decision.Summary,
				Records:    history.Records(),
				Iterations: iteration,
				Usage:      usage,
			}, nil
		}

		// Only the first candidate is honored: browser actions are
		// stateful and order-dependent, so one call per decision.
		call := decision.ToolCalls[0]
		if len(decision.ToolCalls) > 1 {
			l.logger.Warn("model proposed multiple tool calls, honoring the first",
				"honored", call.Tool, "dropped", len(decision.ToolCalls)-1)
		}

		l.execute(ctx, call, history)
	}

	return &RunResult{
		Outcome:    OutcomeMaxIterations,
		Records:    history.Records(),
		Iterations: l.cfg.MaxIterations,
		Usage:      usage,
	}, nil
}

func (l *Loop) decide(ctx context.Context, instruction string, history *History) (*llm.Decision, llm.Usage, error) {
	resp, err := l.model.CreateChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: l.systemPrompt},
			{Role: llm.RoleUser, Content: buildDecisionUserMessage(instruction, history)},
		},
		Temperature: l.cfg.Temperature,
		MaxTokens:   l.cfg.MaxTokens,
		ForceJSON:   true,
		MaxRetries:  l.cfg.MaxRetries,
	})
	if err != nil {
		return nil, llm.Usage{}, err
	}

	decision, err := llm.ParseDecision(resp.Content)
	if err != nil {
		return nil, resp.Usage, fmt.Errorf("unusable model decision: %w", err)
	}
	return decision, resp.Usage, nil
}

func (l *Loop) execute(ctx context.Context, call llm.DecisionToolCall, history *History) {
	l.logger.Info("executing tool", "tool", call.Tool, "arguments", call.Arguments)

	res, err := l.tools.CallTool(ctx, call.Tool, call.Arguments)
	if err != nil {
		// Recoverable: the error text becomes context so the model
		// can adapt on the next decision.
		l.logger.Warn("tool call failed", "tool", call.Tool, "error", err)
		history.AppendError(call.Tool, call.Arguments, err)
		return
	}

	history.Append(call.Tool, call.Arguments, res.Text)

	if l.cfg.ScreenshotPath != "" && isScreenshotTool(call.Tool) && len(res.Images) > 0 {
		if err := os.WriteFile(l.cfg.ScreenshotPath, res.Images[0].Data, 0o644); err != nil {
			l.logger.Warn("failed to persist screenshot", "path", l.cfg.ScreenshotPath, "error", err)
		} else {
			l.logger.Info("screenshot saved", "path", l.cfg.ScreenshotPath)
		}
	}
}

func isScreenshotTool(name string) bool {
	return strings.Contains(strings.ToLower(name), "screenshot")
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
