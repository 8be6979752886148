package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Results struct {
		TTL string `yaml:"ttl"`
	} `yaml:"results"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Generator Generator `yaml:"generator"`
}

// Generator selects and configures the upstream quiz generator.
type Generator struct {
	Provider    string         `yaml:"provider"`
	Timeout     string         `yaml:"timeout"`
	MaxAttempts int            `yaml:"max_attempts"`
	MaxTokens   int            `yaml:"max_tokens"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Claude      ProviderConfig `yaml:"claude"`
	Gemini      ProviderConfig `yaml:"gemini"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; env vars and defaults are used instead.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Log.Mode, "LOG_MODE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")

	g := &cfg.Generator
	setString(&g.Provider, "AI_PROVIDER")
	setString(&g.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&g.OpenAI.Model, "OPENAI_MODEL")
	setString(&g.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&g.Claude.APIKey, "CLAUDE_API_KEY")
	setString(&g.Claude.Model, "CLAUDE_MODEL")
	setString(&g.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&g.Gemini.Model, "GEMINI_MODEL")
	if v := strings.TrimSpace(os.Getenv("AI_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			g.MaxAttempts = n
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
