package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks straight to the OpenAI API. It is the default
// model client when no OAuth gateway is configured.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}, nil
}

func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	for _, t := range req.Tools {
		params, _ := json.Marshal(t.Parameters)
		apiReq.Tools = append(apiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	if req.ToolChoice != "" {
		apiReq.ToolChoice = req.ToolChoice
	}
	if req.ForceJSON {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, apiReq)
		if err == nil {
			break
		}
		if strings.Contains(err.Error(), "429") && attempt < req.MaxRetries {
			select {
			case <-time.After(time.Duration(2*(1<<attempt)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{
		Role:    msg.Role,
		Content: msg.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if out.Role == "" {
		out.Role = RoleAssistant
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}
