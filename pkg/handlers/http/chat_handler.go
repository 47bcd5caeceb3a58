package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/veilgate/veilgate/pkg/guardrail"
	"github.com/veilgate/veilgate/pkg/infra/prometheus"
	"github.com/veilgate/veilgate/pkg/infra/providers"
	"github.com/veilgate/veilgate/pkg/types"
)

// refusalMessage replaces a generated answer that failed the outbound check.
// The blocked content itself never reaches the client.
const refusalMessage = "I can't share that response because it did not pass safety checks."

type Handler interface {
	Handle(c *fiber.Ctx) error
}

type chatHandler struct {
	logger      *logrus.Logger
	gate        *guardrail.Gate
	provider    providers.Client
	providerCfg providers.Config
	providerID  string
}

// NewChatHandler builds the answer-generation endpoint. A nil gate means
// guardrails are disabled and all traffic passes through unchecked.
func NewChatHandler(
	logger *logrus.Logger,
	gate *guardrail.Gate,
	provider providers.Client,
	providerID string,
	providerCfg providers.Config,
) Handler {
	return &chatHandler{
		logger:      logger,
		gate:        gate,
		provider:    provider,
		providerCfg: providerCfg,
		providerID:  providerID,
	}
}

func (h *chatHandler) Handle(c *fiber.Ctx) error {
	var req types.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	// The inbound check already ran in the guardrail middleware before this
	// handler was reached.

	cfg := h.providerCfg
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		cfg.MaxTokens = *req.MaxTokens
	}
	if req.SystemPrompt != "" {
		cfg.SystemPrompt = req.SystemPrompt
	}

	resp, err := h.provider.Ask(c.UserContext(), &cfg, req.Query)
	if err != nil {
		prometheus.ProviderRequestTotal.WithLabelValues(h.providerID, "error").Inc()
		h.logger.WithError(err).WithField("provider", h.providerID).Error("provider request failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to generate answer"})
	}
	prometheus.ProviderRequestTotal.WithLabelValues(h.providerID, "success").Inc()

	answer := resp.Response
	if h.gate != nil {
		verdict := h.gate.CheckOutbound(answer)
		if !verdict.Allowed {
			answer = refusalMessage
		}
	}

	return c.Status(fiber.StatusOK).JSON(types.ChatResponse{
		Answer: answer,
		Query:  req.Query,
		Model:  resp.Model,
	})
}
