package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRuntime calls the OpenAI chat completions API through go-openai.
type OpenAIRuntime struct {
	client  *openai.Client
	hasKey  bool
	retries int
}

// NewOpenAIRuntime builds a runtime from cfg. cfg.BaseURL overrides the
// public endpoint, which also makes any OpenAI-compatible gateway usable.
func NewOpenAIRuntime(cfg RuntimeConfig) *OpenAIRuntime {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = newHTTPClient(cfg.HTTPTimeout)
	return &OpenAIRuntime{client: openai.NewClientWithConfig(oc), hasKey: cfg.APIKey != "", retries: max(1, cfg.RetryMax)}
}

func (r *OpenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if !r.hasKey {
		return nil, errors.New("OPENAI_API_KEY is not set in the environment")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	for _, m := range req.Messages {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 1; attempt <= r.retries; attempt++ {
		resp, err = r.client.CreateChatCompletion(ctx, creq)
		if err == nil || !isRetryable(mapOpenAIError(err)) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response (id=%s)", resp.ID)
	}
	out := &GenerateResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		RequestID: resp.ID,
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: c.Message.Role, Content: c.Message.Content}})
	}
	return out, nil
}

// mapOpenAIError converts go-openai errors into this package's typed errors.
func mapOpenAIError(err error) error {
	if isTimeout(err) {
		return &TimeoutError{Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		if code, ok := apiErr.Code.(string); ok {
			e.Code = code
		}
		return classifyAPIError(e, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyAPIError(&APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}, nil)
	}
	return fmt.Errorf("openai request: %w", err)
}
