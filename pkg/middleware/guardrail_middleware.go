package middleware

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/veilgate/veilgate/pkg/guardrail"
	"github.com/veilgate/veilgate/pkg/types"
)

// maxExtractDepth bounds recursion into nested JSON bodies.
const maxExtractDepth = 5

// GuardrailMiddleware runs the inbound guardrail check against the request
// body before any handler sees it. Outbound checking happens in the chat
// handler, where the generated answer exists.
type GuardrailMiddleware struct {
	logger *logrus.Logger
	gate   *guardrail.Gate
	exempt map[string]struct{}
}

func NewGuardrailMiddleware(logger *logrus.Logger, gate *guardrail.Gate) *GuardrailMiddleware {
	return &GuardrailMiddleware{
		logger: logger,
		gate:   gate,
		exempt: map[string]struct{}{
			"/health":  {},
			"/__/ping": {},
			"/metrics": {},
		},
	}
}

func (m *GuardrailMiddleware) Handle(c *fiber.Ctx) error {
	if _, ok := m.exempt[c.Path()]; ok {
		return c.Next()
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Next()
	}

	requestID := uuid.NewString()
	c.Locals("request_id", requestID)

	text := ExtractText(body)
	verdict := m.gate.CheckInbound(text)
	if !verdict.Allowed {
		m.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.Path(),
			"violations": len(verdict.Violations),
		}).Warn("request blocked by guardrails")
		return c.Status(fiber.StatusBadRequest).JSON(types.NewBlockedResponse(verdict))
	}

	return c.Next()
}

// ExtractText pulls the scannable text out of a request body. JSON bodies
// yield their string fields, recursively, joined by spaces; anything else is
// treated as plain text.
func ExtractText(body []byte) string {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}

	var parts []string
	collectStrings(decoded, maxExtractDepth, &parts)
	return strings.Join(parts, " ")
}

func collectStrings(value interface{}, depth int, parts *[]string) {
	if depth <= 0 {
		return
	}
	switch v := value.(type) {
	case string:
		*parts = append(*parts, v)
	case map[string]interface{}:
		// Keys are walked in sorted order so the same body always produces
		// the same scan text, and therefore the same verdict.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(v[k], depth-1, parts)
		}
	case []interface{}:
		for _, item := range v {
			collectStrings(item, depth-1, parts)
		}
	}
}
