package generator

import (
	"context"
	"fmt"

	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/llm"
)

const systemPrompt = `You are a quiz author. Respond only with raw JSON (no markdown).
Every question has exactly four options keyed A, B, C and D, exactly one
correct_option_key, and a short explanation of why that option is correct.`

const defaultMaxTokens = 1500

// LLMGenerator asks a model for quiz content matching QuizSchema.
type LLMGenerator struct {
	provider  llm.Provider
	name      string
	maxTokens int
}

func NewLLM(provider llm.Provider, name string, maxTokens int) *LLMGenerator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &LLMGenerator{provider: provider, name: name, maxTokens: maxTokens}
}

func (g *LLMGenerator) Generate(ctx context.Context, topic string) (Output, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      userPrompt(topic),
		Schema:      QuizSchema,
		MaxTokens:   g.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return Output{}, &domain.GenerationError{Provider: g.name, Err: err}
	}
	return Output{Payload: resp.Content, Provider: g.name}, nil
}

func userPrompt(topic string) string {
	return fmt.Sprintf("Generate exactly %d multiple-choice questions about: %s. "+
		"Each question must have %d options with keys A, B, C, D and exactly one "+
		"correct_option_key. Keep prompts factual and concise. Return JSON only.",
		domain.QuestionCount, topic, domain.OptionCount)
}
