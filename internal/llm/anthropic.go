package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider calls the Claude messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicProvider(cfg ProviderConfig) (*AnthropicProvider, error) {
	if err := cfg.check("anthropic"); err != nil {
		return nil, err
	}
	// Retries happen in WithRetry, not in the SDK.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, model: cfg.modelOr("claude-haiku-4-5-20251001")}, nil
}

func (p *AnthropicProvider) ModelID() string { return p.model }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return nil, p.failure(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := json.RawMessage(text.String())
	if msg.StopReason == anthropic.StopReasonMaxTokens {
		return nil, &Error{Failure: Truncated, Model: p.model, Content: content}
	}
	return reply(p.model, req, content, Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	})
}

func (p *AnthropicProvider) params(req Request) anthropic.MessageNewParams {
	out := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		out.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		out.Temperature = anthropic.Float(req.Temperature)
	}
	if req.Schema != nil {
		out.OutputConfig = anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{Schema: req.Schema.Definition},
		}
	}
	return out
}

func (p *AnthropicProvider) failure(err error) *Error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &Error{Failure: Unavailable, Model: p.model, Err: err}
	}
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	return apiFailure(p.model, apiErr.StatusCode, header, err)
}
