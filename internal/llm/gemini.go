package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, cfg ProviderConfig) (*GeminiProvider, error) {
	if err := cfg.check("gemini"); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.modelOr("gemini-2.0-flash")}, nil
}

func (p *GeminiProvider) ModelID() string { return p.model }

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	result, err := p.client.Models.GenerateContent(ctx, p.model, prompt, geminiConfig(req))
	if err != nil {
		return nil, p.failure(err)
	}

	content := json.RawMessage(result.Text())
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, &Error{Failure: Truncated, Model: p.model, Content: content}
	}
	var usage Usage
	if md := result.UsageMetadata; md != nil {
		usage = Usage{InputTokens: int(md.PromptTokenCount), OutputTokens: int(md.CandidatesTokenCount)}
	}
	return reply(p.model, req, content, usage)
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens:  int32(req.MaxTokens),
		ResponseMIMEType: "application/json",
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseSchema = geminiSchema(req.Schema.Definition)
	}
	return cfg
}

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// geminiSchema translates the JSON Schema keywords QuizSchema uses. Gemini
// has no additionalProperties, so it is dropped.
func geminiSchema(def map[string]any) *genai.Schema {
	out := &genai.Schema{
		Required: keywordList(def["required"]),
		Enum:     keywordList(def["enum"]),
	}
	out.Description, _ = def["description"].(string)
	if name, ok := def["type"].(string); ok {
		if t, known := geminiTypes[name]; known {
			out.Type = t
		} else {
			out.Type = genai.TypeString
		}
	}
	if items, ok := def["items"].(map[string]any); ok {
		out.Items = geminiSchema(items)
	}
	props, _ := def["properties"].(map[string]any)
	for name, raw := range props {
		sub, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if out.Properties == nil {
			out.Properties = make(map[string]*genai.Schema, len(props))
		}
		out.Properties[name] = geminiSchema(sub)
	}
	return out
}

// keywordList reads a keyword list written either as a Go literal or as decoded JSON.
func keywordList(v any) []string {
	if list, ok := v.([]string); ok {
		return list
	}
	raw, _ := v.([]any)
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *GeminiProvider) failure(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiFailure(p.model, apiErr.Code, nil, err)
	}
	return &Error{Failure: Unavailable, Model: p.model, Err: err}
}
