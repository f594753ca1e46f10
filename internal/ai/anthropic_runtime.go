package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicRuntime calls the Anthropic Messages API.
type AnthropicRuntime struct {
	client anthropic.Client
	hasKey bool
}

// NewAnthropicRuntime builds a runtime from cfg. The SDK's own retry loop
// runs RetryMax-1 extra attempts.
func NewAnthropicRuntime(cfg RuntimeConfig) *AnthropicRuntime {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(0, cfg.RetryMax-1)),
		option.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicRuntime{client: anthropic.NewClient(opts...), hasKey: cfg.APIKey != ""}
}

func (r *AnthropicRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if !r.hasKey {
		return nil, errors.New("ANTHROPIC_API_KEY is not set in the environment")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Type: "text", Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: no text content in response (stop_reason=%s)", msg.StopReason)
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &GenerateResponse{
		ID:        msg.ID,
		Model:     string(msg.Model),
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage:     Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
		RequestID: msg.ID,
	}, nil
}

func mapAnthropicError(err error) error {
	if isTimeout(err) {
		return &TimeoutError{Err: err}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		e := &APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		if apiErr.Response != nil {
			e.RequestID = apiErr.Response.Header.Get("Request-Id")
		}
		return classifyAPIError(e, apiErr.Response)
	}
	return fmt.Errorf("anthropic request: %w", err)
}
