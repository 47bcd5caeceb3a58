package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/veilgate/veilgate/pkg/infra/prometheus"
)

// Metrics counts every request by method and final status.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		prometheus.GatewayRequestTotal.WithLabelValues(
			c.Method(), strconv.Itoa(c.Response().StatusCode()),
		).Inc()
		return err
	}
}
