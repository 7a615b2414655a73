package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderGLM        = "glm"
	ProviderNVIDIA     = "nvidia"
	ProviderMock       = "mock"
)

// Config selects and configures the model provider.
type Config struct {
	Provider string `koanf:"provider" validate:"required,oneof=anthropic openai gemini openrouter glm nvidia mock"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	GLM        CompatConfig     `koanf:"glm"`
	NVIDIA     CompatConfig     `koanf:"nvidia"`
	Retry      RetryConfig      `koanf:"retry"`

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration `koanf:"timeout"`
}

type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// OpenRouterConfig adds the attribution OpenRouter shows on its dashboards.
type OpenRouterConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
	AppURL  string `koanf:"app_url"`
	AppName string `koanf:"app_name"`
}

// CompatConfig configures an OpenAI-compatible chat completions endpoint.
type CompatConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// RetryConfig controls the retry decorator.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier"`

	// RetryInvalid allows one extra attempt after a malformed response.
	// Off by default: a malformed verdict counts as a failed judgment.
	RetryInvalid bool `koanf:"retry_invalid"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		GLM: CompatConfig{
			Model:   "glm-4-flash",
			BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		},
		NVIDIA: CompatConfig{
			Model:   "meta/llama-3.1-8b-instruct",
			BaseURL: "https://integrate.api.nvidia.com/v1",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// HasKey reports whether the selected provider has credentials.
func (c Config) HasKey() bool {
	return c.Validate() == nil
}

// Discover fills in the first well-known provider key found in the
// environment (Gemini, OpenAI, Anthropic, OpenRouter, GLM, NVIDIA order).
// It returns false when none is set.
func (c *Config) Discover() bool {
	probes := []struct {
		env      string
		provider string
		key      *string
	}{
		{"GEMINI_API_KEY", ProviderGemini, &c.Gemini.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &c.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &c.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &c.OpenRouter.APIKey},
		{"GLM_API_KEY", ProviderGLM, &c.GLM.APIKey},
		{"NVIDIA_API_KEY", ProviderNVIDIA, &c.NVIDIA.APIKey},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			c.Provider = p.provider
			*p.key = k
			return true
		}
	}
	return false
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenRouter:
		key = c.OpenRouter.APIKey
	case ProviderGLM:
		key = c.GLM.APIKey
	case ProviderNVIDIA:
		key = c.NVIDIA.APIKey
	case ProviderMock:
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("llm.%s.api_key is required for the %s provider", c.Provider, c.Provider)
	}
	return nil
}
