package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes one callable function in the shape the
// chat-completion APIs expect (JSON schema parameters).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is a tool invocation request returned by the model,
// passed through unmodified from the underlying API.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
	Tools       []ToolDefinition
	ToolChoice  string

	// ForceJSON asks the model for a single JSON object response.
	ForceJSON bool

	// MaxRetries bounds re-attempts after a failed request.
	// Zero means a single attempt.
	MaxRetries int
}

// ChatResponse is the normalized response contract. Every client fills
// every field regardless of what the underlying API returned; absent
// usage counters default to zero so callers can aggregate without
// null-checking.
type ChatResponse struct {
	Role      string
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Client is the chat-completion contract shared by the direct OpenAI
// client and the OAuth gateway adapter.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
