package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/copaw/webagent/internal/llm"
	"github.com/copaw/webagent/internal/toolserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	decisions []llm.Decision
	calls     int
}

func (f *fakeModel) CreateChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.calls >= len(f.decisions) {
		return nil, errors.New("fake model exhausted")
	}
	d := f.decisions[f.calls]
	f.calls++
	content, _ := json.Marshal(d)
	return &llm.ChatResponse{
		Role:    llm.RoleAssistant,
		Content: string(content),
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

type scriptedCall struct {
	result *toolserver.Result
	err    error
}

type fakeCaller struct {
	tools  []toolserver.ToolDescriptor
	script []scriptedCall
	calls  []string
}

func (f *fakeCaller) Tools() []toolserver.ToolDescriptor { return f.tools }

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]any) (*toolserver.Result, error) {
	i := len(f.calls)
	f.calls = append(f.calls, name)
	if i < len(f.script) {
		return f.script[i].result, f.script[i].err
	}
	return &toolserver.Result{Text: "ok"}, nil
}

func browserTools() []toolserver.ToolDescriptor {
	return []toolserver.ToolDescriptor{
		{Name: "navigate", Description: "go to a URL", Properties: map[string]string{"url": "string"}, Required: []string{"url"}},
		{Name: "click", Description: "click an element", Properties: map[string]string{"element_id": "string"}, Required: []string{"element_id"}},
		{Name: "screenshot", Description: "capture the viewport"},
	}
}

func toolCall(tool string, args map[string]any) llm.DecisionToolCall {
	return llm.DecisionToolCall{Tool: tool, Arguments: args}
}

func TestLoopRequiresTools(t *testing.T) {
	_, err := NewLoop(&fakeCaller{}, &fakeModel{}, Config{}, nil)
	var connErr *toolserver.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestLoopSimpleNavigation(t *testing.T) {
	shotPath := filepath.Join(t.TempDir(), "shot.jpg")
	caller := &fakeCaller{
		tools: browserTools(),
		script: []scriptedCall{
			{result: &toolserver.Result{Text: "Navigated to https://example.com"}},
			{result: &toolserver.Result{
				Text:   "Screenshot of https://example.com",
				Images: []toolserver.Image{{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}},
			}},
		},
	}
	model := &fakeModel{decisions: []llm.Decision{
		{Thinking: "open the page", ToolCalls: []llm.DecisionToolCall{toolCall("navigate", map[string]any{"url": "https://example.com"})}},
		{Thinking: "capture it", ToolCalls: []llm.DecisionToolCall{toolCall("screenshot", nil)}},
		{Thinking: "all done", Done: true, Summary: "navigated and captured a screenshot"},
	}}

	loop, err := NewLoop(caller, model, Config{ScreenshotPath: shotPath}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "go to example.com and take a screenshot")
	require.NoError(t, err)

	assert.Equal(t, OutcomeDone, result.Outcome)
	assert.Equal(t, "navigated and captured a screenshot", result.Summary)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, []string{"navigate", "screenshot"}, caller.calls)

	written, err := os.ReadFile(shotPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), written)
}

func TestLoopToolFailureIsRecoverable(t *testing.T) {
	caller := &fakeCaller{
		tools: browserTools(),
		script: []scriptedCall{
			{err: &toolserver.ToolInvocationError{Tool: "click", Message: "element not found"}},
			{result: &toolserver.Result{Text: "clicked"}},
		},
	}
	model := &fakeModel{decisions: []llm.Decision{
		{ToolCalls: []llm.DecisionToolCall{toolCall("click", map[string]any{"element_id": "3"})}},
		{ToolCalls: []llm.DecisionToolCall{toolCall("click", map[string]any{"element_id": "7"})}},
		{Done: true, Summary: "clicked after retrying a different element"},
	}}

	loop, err := NewLoop(caller, model, Config{}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "click the login button")
	require.NoError(t, err)

	assert.Equal(t, OutcomeDone, result.Outcome)
	require.Len(t, result.Records, 2)
	assert.True(t, result.Records[0].IsError)
	assert.Contains(t, result.Records[0].Result, "Error:")
	assert.Contains(t, result.Records[0].Result, "element not found")
	assert.False(t, result.Records[1].IsError)
}

func TestLoopIterationExhaustion(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	// Never done: always another click.
	decisions := make([]llm.Decision, 10)
	for i := range decisions {
		decisions[i] = llm.Decision{ToolCalls: []llm.DecisionToolCall{toolCall("click", map[string]any{"element_id": "1"})}}
	}
	model := &fakeModel{decisions: decisions}

	loop, err := NewLoop(caller, model, Config{MaxIterations: 5}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "keep clicking")
	require.NoError(t, err)

	assert.Equal(t, OutcomeMaxIterations, result.Outcome)
	assert.Equal(t, 5, result.Iterations)
	assert.Len(t, caller.calls, 5, "a 6th tool call must never happen")
	assert.Len(t, result.Records, 5)
}

func TestLoopHonorsOnlyFirstToolCall(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	model := &fakeModel{decisions: []llm.Decision{
		{ToolCalls: []llm.DecisionToolCall{
			toolCall("navigate", map[string]any{"url": "https://a.example"}),
			toolCall("click", map[string]any{"element_id": "1"}),
			toolCall("screenshot", nil),
		}},
		{Done: true},
	}}

	loop, err := NewLoop(caller, model, Config{}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "do several things")
	require.NoError(t, err)

	assert.Equal(t, []string{"navigate"}, caller.calls)
	assert.Len(t, result.Records, 1)
}

func TestLoopImplicitCompletion(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	model := &fakeModel{decisions: []llm.Decision{
		{Thinking: "nothing to do"},
	}}

	loop, err := NewLoop(caller, model, Config{}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "noop")
	require.NoError(t, err)

	assert.Equal(t, OutcomeDone, result.Outcome)
	assert.Empty(t, result.Records)
	assert.Empty(t, caller.calls)
}

func TestLoopPropagatesModelFailure(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	model := &fakeModel{} // fails immediately

	loop, err := NewLoop(caller, model, Config{}, nil)
	require.NoError(t, err)

	_, err = loop.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Empty(t, caller.calls)
}

func TestLoopHistoryGrowsWithExecutions(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	model := &fakeModel{decisions: []llm.Decision{
		{ToolCalls: []llm.DecisionToolCall{toolCall("navigate", map[string]any{"url": "https://a.example"})}},
		{ToolCalls: []llm.DecisionToolCall{toolCall("click", map[string]any{"element_id": "2"})}},
		{ToolCalls: []llm.DecisionToolCall{toolCall("screenshot", nil)}},
		{Done: true},
	}}

	loop, err := NewLoop(caller, model, Config{}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "three steps")
	require.NoError(t, err)

	assert.Len(t, result.Records, len(caller.calls))
	assert.Equal(t, llm.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60}, result.Usage)
}

func TestLoopStopsBetweenIterationsOnInterrupt(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	// Never done: the interrupt is the only way out.
	decisions := make([]llm.Decision, 10)
	for i := range decisions {
		decisions[i] = llm.Decision{ToolCalls: []llm.DecisionToolCall{toolCall("click", map[string]any{"element_id": "1"})}}
	}
	model := &fakeModel{decisions: decisions}

	polls := 0
	loop, err := NewLoop(caller, model, Config{
		Interrupted: func() bool {
			polls++
			return polls > 2
		},
	}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "keep clicking")
	require.NoError(t, err)

	assert.Equal(t, OutcomeInterrupted, result.Outcome)
	assert.Equal(t, 2, result.Iterations)
	assert.Len(t, caller.calls, 2, "no tool call may run after the interrupt")
	assert.Len(t, result.Records, 2)
}

func TestLoopInterruptBeforeFirstIteration(t *testing.T) {
	caller := &fakeCaller{tools: browserTools()}
	model := &fakeModel{} // would fail if consulted

	loop, err := NewLoop(caller, model, Config{
		Interrupted: func() bool { return true },
	}, nil)
	require.NoError(t, err)

	result, err := loop.Run(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, OutcomeInterrupted, result.Outcome)
	assert.Zero(t, result.Iterations)
	assert.Empty(t, caller.calls)
}

func TestLoopAggregatesScreenshotOnlyWhenConfigured(t *testing.T) {
	caller := &fakeCaller{
		tools: browserTools(),
		script: []scriptedCall{
			{result: &toolserver.Result{
				Text:   "shot",
				Images: []toolserver.Image{{Data: []byte("x"), MIMEType: "image/jpeg"}},
			}},
		},
	}
	model := &fakeModel{decisions: []llm.Decision{
		{ToolCalls: []llm.DecisionToolCall{toolCall("screenshot", nil)}},
		{Done: true},
	}}

	loop, err := NewLoop(caller, model, Config{}, nil) // no ScreenshotPath
	require.NoError(t, err)

	_, err = loop.Run(context.Background(), "screenshot")
	require.NoError(t, err)
}
