package providers

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	resp  *CompletionResponse
	err   error
	calls int
}

func (s *stubClient) Ask(_ context.Context, _ *Config, _ string) (*CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func breakerTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBreakerClientPassesThroughSuccess(t *testing.T) {
	inner := &stubClient{resp: &CompletionResponse{Response: "ok"}}
	client := NewBreakerClient("test", inner, breakerTestLogger())

	resp, err := client.Ask(context.Background(), &Config{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerClientOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubClient{err: errors.New("upstream down")}
	client := NewBreakerClient("test", inner, breakerTestLogger())

	for i := 0; i < 3; i++ {
		_, err := client.Ask(context.Background(), &Config{}, "hello")
		require.Error(t, err)
		assert.ErrorContains(t, err, "upstream down")
	}
	assert.Equal(t, 3, inner.calls)

	// Fourth call fails fast without reaching the provider.
	_, err := client.Ask(context.Background(), &Config{}, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls)
}

func TestBreakerClientWrapsErrorsWithBreakerName(t *testing.T) {
	inner := &stubClient{err: errors.New("boom")}
	client := NewBreakerClient("openai", inner, breakerTestLogger())

	_, err := client.Ask(context.Background(), &Config{}, "hello")
	require.Error(t, err)
	assert.ErrorContains(t, err, "breaker (openai)")
}
