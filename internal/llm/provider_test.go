package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var answerSchema = &Schema{
	Name: "answer_test",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"answer": map[string]any{"type": "string"}},
		"required":             []string{"answer"},
		"additionalProperties": false,
	},
}

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: "gpt-4.1-mini"}
}

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	return &AnthropicProvider{client: &client, model: "claude-test"}
}

func openAIReply(content, finish string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4.1-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": finish,
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
		})
	}
}

func TestOpenAIProviderHappyPath(t *testing.T) {
	var got map[string]any
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		openAIReply(`{"answer":"42"}`, "stop")(w, r)
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "You write quizzes.",
		Prompt:    "golang",
		Schema:    answerSchema,
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"42"}`, string(resp.Content))
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 65, resp.Usage.Total())
	assert.NoError(t, resp.SchemaMismatch)

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	spec, ok := format["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "answer_test", spec["name"])
	assert.Equal(t, []any{"answer"}, spec["schema"].(map[string]any)["required"])
}

func TestOpenAIProviderSchemaMismatch(t *testing.T) {
	p := newTestOpenAIProvider(t, openAIReply(`{"wrong":1}`, "stop"))

	resp, err := p.Generate(context.Background(), Request{
		Prompt: "x",
		Schema: answerSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"wrong":1}`, string(resp.Content))
	assert.Error(t, resp.SchemaMismatch)
}

func TestOpenAIProviderProse(t *testing.T) {
	p := newTestOpenAIProvider(t, openAIReply("I cannot help with that.", "stop"))

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, NotJSON, e.Failure)
	assert.Equal(t, "gpt-4.1-mini", e.Model)
}

func TestOpenAIProviderTruncated(t *testing.T) {
	p := newTestOpenAIProvider(t, openAIReply(`{"answer":`, "length"))

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	f, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, Truncated, f)
}

func TestOpenAIProviderErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   Failure
	}{
		{"rate limit", http.StatusTooManyRequests, RateLimited},
		{"server error", http.StatusInternalServerError, Unavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "error", "message": "nope"},
				})
			})
			_, err := p.Generate(context.Background(), Request{Prompt: "x"})
			f, ok := FailureOf(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tc.want, f)
		})
	}
}

func TestAnthropicProviderHappyPath(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"answer":`},
				{"type": "text", "text": `"42"}`},
			},
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "You write quizzes.",
		Prompt:    "golang",
		Schema:    answerSchema,
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"42"}`, string(resp.Content))
	assert.Equal(t, 80, resp.Usage.Total())
}

func TestAnthropicProviderRateLimit(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	})

	_, err := p.Generate(context.Background(), Request{
		Prompt:    "x",
		MaxTokens: 100,
	})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, RateLimited, e.Failure)
	assert.Equal(t, 2*time.Second, e.RetryAfter)
}

func TestAnthropicProviderNoText(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "msg_test", "type": "message", "role": "assistant",
			"content":     []map[string]any{},
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 0},
		})
	})

	_, err := p.Generate(context.Background(), Request{
		Prompt:    "x",
		MaxTokens: 100,
	})
	f, ok := FailureOf(err)
	require.True(t, ok)
	assert.Equal(t, NotJSON, f)
}

func TestNewProviderRequiresKeys(t *testing.T) {
	for _, name := range []string{"openai", "claude", "anthropic", "gemini"} {
		_, err := NewProvider(context.Background(), Config{Provider: name}, nil)
		assert.Error(t, err, name)
	}
	_, err := NewProvider(context.Background(), Config{Provider: "bard"}, nil)
	assert.ErrorContains(t, err, "unknown LLM provider")

	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}

func TestNewProviderWrapsWithRetryAndLogging(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Provider: "openai",
		OpenAI:   ProviderConfig{APIKey: "k", Model: "gpt-test"},
		Retry:    RetryConfig{MaxAttempts: 2, InitialWait: time.Millisecond},
	}, nil)
	require.NoError(t, err)

	r, ok := p.(*retrying)
	require.True(t, ok)
	assert.Equal(t, 2, r.policy.MaxAttempts)
	_, ok = r.next.(*logged)
	assert.True(t, ok)
	assert.Equal(t, "gpt-test", p.ModelID())
}

func TestGeminiSchemaConversion(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []any{"A", "B"}},
			},
			"count": map[string]any{"type": "integer", "description": "how many"},
		},
		"required": []string{"questions"},
	})

	assert.EqualValues(t, "OBJECT", s.Type)
	assert.Equal(t, []string{"questions"}, s.Required)
	require.Contains(t, s.Properties, "questions")
	assert.EqualValues(t, "ARRAY", s.Properties["questions"].Type)
	assert.Equal(t, []string{"A", "B"}, s.Properties["questions"].Items.Enum)
	assert.EqualValues(t, "INTEGER", s.Properties["count"].Type)
	assert.Equal(t, "how many", s.Properties["count"].Description)
}

func TestGeminiConfigAlwaysAsksForJSON(t *testing.T) {
	cfg := geminiConfig(Request{System: "be brief", MaxTokens: 64, Temperature: 0.5})
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseSchema)
	assert.EqualValues(t, 64, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)

	cfg = geminiConfig(Request{Schema: answerSchema})
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, []string{"answer"}, cfg.ResponseSchema.Required)
}

func TestMapErrorsKeepCause(t *testing.T) {
	cause := errors.New("boom")
	p := &GeminiProvider{model: "gemini-test"}
	e := p.failure(cause)
	assert.Equal(t, Unavailable, e.Failure)
	assert.ErrorIs(t, e, cause)

	e = p.failure(genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"})
	assert.Equal(t, RateLimited, e.Failure)
}
