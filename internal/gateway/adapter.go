// Package gateway adapts an OAuth-gated enterprise model endpoint to
// the chat-completion contract in internal/llm. The gateway speaks an
// OpenAI-compatible dialect, but deployed versions differ in small ways
// (content as string vs. segment list, missing usage block), so the
// response is decoded leniently and normalized.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/copaw/webagent/internal/llm"
	"golang.org/x/oauth2"
)

type Config struct {
	BaseURL string
	Model   string
}

// Adapter implements llm.Client on top of the OAuth gateway.
type Adapter struct {
	cfg    Config
	client *http.Client
	tokens oauth2.TokenSource
	logger *slog.Logger
}

var _ llm.Client = (*Adapter)(nil)

func NewAdapter(cfg Config, tokens oauth2.TokenSource, client *http.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, client: client, tokens: tokens, logger: logger}
}

type gatewayFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type gatewayTool struct {
	Type     string          `json:"type"`
	Function gatewayFunction `json:"function"`
}

type gatewayRequest struct {
	Model          string            `json:"model"`
	Messages       []llm.ChatMessage `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	Tools          []gatewayTool     `json:"tools,omitempty"`
	ToolChoice     string            `json:"tool_choice,omitempty"`
	ResponseFormat *responseFormat   `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// gatewayResponse mirrors the OpenAI chat-completion body, with content
// kept raw because some gateway versions return a segment list instead
// of a plain string.
type gatewayResponse struct {
	Choices []struct {
		Message struct {
			Role      string          `json:"role"`
			Content   json.RawMessage `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// CreateChatCompletion sends one chat request with a fresh bearer
// token. Any request-level failure consumes one retry; a failed token
// fetch is fatal immediately.
func (a *Adapter) CreateChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body := gatewayRequest{
		Model:       a.cfg.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ToolChoice:  req.ToolChoice,
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, gatewayTool{
			Type: "function",
			Function: gatewayFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ForceJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode gateway request: %w", err)
	}

	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		attempts++
		resp, err := a.send(ctx, payload)
		if err == nil {
			return resp, nil
		}
		var tokenErr *TokenFetchError
		if errors.As(err, &tokenErr) {
			return nil, err
		}
		lastErr = err
		a.logger.Warn("gateway request failed", "attempt", attempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ModelRequestError{Attempts: attempts, Err: lastErr}
}

func (a *Adapter) send(ctx context.Context, payload []byte) (*llm.ChatResponse, error) {
	tok, err := a.tokens.Token()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d: %s", httpResp.StatusCode, truncateBody(raw))
	}

	var decoded gatewayResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("malformed gateway body: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("gateway response has no choices")
	}

	msg := decoded.Choices[0].Message
	out := &llm.ChatResponse{
		Role:    msg.Role,
		Content: normalizeContent(msg.Content),
		Usage: llm.Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}
	if out.Role == "" {
		out.Role = llm.RoleAssistant
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// ExtractStructured recovers a schema-shaped element/action object from
// message content: strict parse first, then the first embedded JSON
// span, then normalization of the known shape variants.
func (a *Adapter) ExtractStructured(content string) (*llm.ElementAction, bool) {
	return llm.ParseElementAction(content)
}

// normalizeContent accepts the two content encodings seen in the wild:
// a JSON string, or a list of {type:"text", text:...} segments.
func normalizeContent(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var b strings.Builder
		for _, seg := range segments {
			if seg.Type == "" || seg.Type == "text" {
				b.WriteString(seg.Text)
			}
		}
		return b.String()
	}
	return string(raw)
}

func truncateBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
