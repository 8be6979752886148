package llm

import (
	"context"
	"fmt"
	"strings"

	"quiz-forge-service/internal/logger"
)

// NewProvider builds the configured vendor client behind logging and then
// retry, so each attempt is logged. "mock" returns an empty MockProvider.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	vendor := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var base Provider
	var err error
	switch vendor {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "claude", "anthropic":
		base, err = NewAnthropicProvider(cfg.Claude)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(WithLogging(base, log), cfg.Retry), nil
}
