package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// breakerClient shields the gateway from a failing upstream provider: after
// maxFailures consecutive errors the circuit opens and Ask fails fast until
// the timeout elapses.
type breakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerClient(name string, inner Client, logger *logrus.Logger) Client {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("provider circuit breaker state change")
		},
	}
	return &breakerClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *breakerClient) Ask(ctx context.Context, config *Config, prompt string) (*CompletionResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Ask(ctx, config, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", c.breaker.Name(), err)
	}
	resp, ok := result.(*CompletionResponse)
	if !ok {
		return nil, fmt.Errorf("breaker (%s): unexpected result type", c.breaker.Name())
	}
	return resp, nil
}
