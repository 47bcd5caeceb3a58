package providers

import (
	"context"
)

type Config struct {
	Credentials  Credentials `json:"credentials"`
	Model        string      `json:"model"`
	MaxTokens    int         `json:"max_tokens,omitempty"`
	Temperature  float64     `json:"temperature,omitempty"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
}

type Credentials struct {
	ApiKey string `json:"api_key"`
}

// Client answers a single prompt against one upstream LLM provider.
type Client interface {
	Ask(ctx context.Context, config *Config, prompt string) (*CompletionResponse, error)
}
