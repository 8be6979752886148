package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-forge-service/internal/config"
	"quiz-forge-service/internal/llm"
	"quiz-forge-service/internal/logger"
)

// keyEnv names the env var holding each provider's API key.
var keyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"claude": "CLAUDE_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// New builds the generator selected by cfg. A provider without an API key
// falls back to Placeholder carrying a notice that names the missing variable.
func New(ctx context.Context, cfg config.Generator, log *logger.Logger) (Generator, error) {
	if log == nil {
		log = logger.NewNop()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case "":
		name = "openai"
	case "anthropic":
		name = "claude"
	case "mock", "placeholder":
		return Placeholder{}, nil
	}

	llmCfg := llm.Config{
		Provider: name,
		OpenAI:   llm.ProviderConfig(cfg.OpenAI),
		Claude:   llm.ProviderConfig(cfg.Claude),
		Gemini:   llm.ProviderConfig(cfg.Gemini),
		Retry:    llm.DefaultRetry(),
	}
	if cfg.MaxAttempts > 0 {
		llmCfg.Retry.MaxAttempts = cfg.MaxAttempts
	}

	env, ok := keyEnv[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
	if apiKey(llmCfg, name) == "" {
		log.Warn("generator API key missing, using placeholder quizzes", "provider", name, "env", env)
		return Placeholder{
			Notice: fmt.Sprintf("Unable to create quiz: %s is not configured. Defaulting to placeholder quiz.", env),
		}, nil
	}

	provider, err := llm.NewProvider(ctx, llmCfg, log.With("component", "llm"))
	if err != nil {
		return nil, err
	}
	return NewLLM(provider, name, cfg.MaxTokens), nil
}

func apiKey(cfg llm.Config, name string) string {
	switch name {
	case "openai":
		return cfg.OpenAI.APIKey
	case "claude":
		return cfg.Claude.APIKey
	default:
		return cfg.Gemini.APIKey
	}
}

// Timeout parses cfg.Timeout, defaulting to 30s.
func Timeout(cfg config.Generator) time.Duration {
	return config.TTLDuration(cfg.Timeout, 30*time.Second)
}
