package factory

import (
	"fmt"

	"github.com/veilgate/veilgate/pkg/infra/providers"
	"github.com/veilgate/veilgate/pkg/infra/providers/anthropic"
	"github.com/veilgate/veilgate/pkg/infra/providers/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type ProviderLocator interface {
	Get(provider string) (providers.Client, error)
}

type providerLocator struct{}

func NewProviderLocator() ProviderLocator {
	return &providerLocator{}
}

func (f *providerLocator) Get(provider string) (providers.Client, error) {
	switch provider {
	case ProviderOpenAI:
		return openai.NewOpenaiClient(), nil
	case ProviderAnthropic:
		return anthropic.NewAnthropicClient(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
