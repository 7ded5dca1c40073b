package ai

import (
	"fmt"
	"strings"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig selects and configures a TextGenerator.
type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// NewGenerator builds the configured provider. It returns ErrMissingAPIKey
// when no credential is set so callers can degrade instead of failing.
func NewGenerator(cfg ProviderConfig) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		generator, err := NewOpenAIGenerator(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		return generator, nil
	case ProviderAnthropic:
		generator, err := NewAnthropicGenerator(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
