// Package llm talks to hosted language models and returns their JSON output.
//
// Providers guarantee only that a reply is a JSON document. Whether it has the
// right shape is the caller's business: the requested Schema is sent as a
// structured-output hint, and a reply that does not match it is still returned
// with Response.SchemaMismatch set.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one request to a model.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// ModelID is the model this provider is configured to call.
	ModelID() string
}

// Request is a single-turn generation: one system instruction and one user
// prompt.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema is the JSON Schema requested from the model. Name is used as the
// OpenAI response-format name and as the compiled-schema cache key.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string
	// SchemaMismatch is non-nil when Content parsed but does not satisfy
	// Request.Schema.
	SchemaMismatch error
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }
