package llm

import (
	"fmt"
	"time"
)

// Config selects a provider and its retry policy.
// Provider values: "openai", "claude" (alias "anthropic"), "gemini", "mock".
type Config struct {
	Provider string
	OpenAI   ProviderConfig
	Claude   ProviderConfig
	Gemini   ProviderConfig
	Retry    RetryConfig
}

// ProviderConfig holds credentials for one hosted model. BaseURL is optional
// and only honored by the OpenAI and Claude clients.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func (c ProviderConfig) check(vendor string) error {
	if c.APIKey == "" {
		return fmt.Errorf("%s: no API key configured", vendor)
	}
	return nil
}

func (c ProviderConfig) modelOr(fallback string) string {
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetry makes one extra attempt after a transient failure.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}
