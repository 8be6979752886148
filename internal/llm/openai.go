package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the chat completions API. BaseURL allows any
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if err := cfg.check("openai"); err != nil {
		return nil, err
	}
	conn := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conn.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(conn), model: cfg.modelOr("gpt-4.1-mini")}, nil
}

func (p *OpenAIProvider) ModelID() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	completion, err := p.client.CreateChatCompletion(ctx, p.chatRequest(req))
	if err != nil {
		return nil, p.failure(err)
	}
	if len(completion.Choices) == 0 {
		return nil, &Error{Failure: NotJSON, Model: p.model, Err: errEmptyReply}
	}

	first := completion.Choices[0]
	text := json.RawMessage(first.Message.Content)
	if first.FinishReason == openai.FinishReasonLength {
		return nil, &Error{Failure: Truncated, Model: p.model, Content: text}
	}
	return reply(p.model, req, text, Usage{
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	})
}

func (p *OpenAIProvider) chatRequest(req Request) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	out := openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            msgs,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.Schema == nil {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		return out
	}
	// json.Marshaler keeps the definition map as-is on the wire.
	out.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        req.Schema.Name,
			Description: req.Schema.Description,
			Schema:      schemaJSON(req.Schema.Definition),
			Strict:      true,
		},
	}
	return out
}

type schemaJSON map[string]any

func (s schemaJSON) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, fmt.Errorf("encode response schema: %w", err)
	}
	return b, nil
}

func (p *OpenAIProvider) failure(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiFailure(p.model, apiErr.HTTPStatusCode, nil, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apiFailure(p.model, reqErr.HTTPStatusCode, nil, err)
	}
	return &Error{Failure: Unavailable, Model: p.model, Err: err}
}
