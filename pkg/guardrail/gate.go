package guardrail

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veilgate/veilgate/pkg/infra/prometheus"
)

// Direction selects which side of the pipeline a check covers.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Gate is the public guardrail façade: one check before request processing,
// one after answer generation. It holds no mutable state, so a single Gate
// may be shared across arbitrarily many concurrent evaluations.
type Gate struct {
	policy *Policy
	runner *Runner
	logger *logrus.Logger
}

func NewGate(policy *Policy, logger *logrus.Logger) *Gate {
	return &Gate{
		policy: policy,
		runner: NewRunner(logger),
		logger: logger,
	}
}

func (g *Gate) Policy() *Policy {
	return g.policy
}

// CheckInbound evaluates raw request text against the policy's inbound checks.
func (g *Gate) CheckInbound(text string) Verdict {
	return g.check(text, Inbound)
}

// CheckOutbound evaluates generated answer text against the policy's outbound
// checks.
func (g *Gate) CheckOutbound(text string) Verdict {
	return g.check(text, Outbound)
}

func (g *Gate) check(text string, direction Direction) Verdict {
	start := time.Now()

	findings := g.runner.Run(text, g.policy.ChecksFor(direction), g.policy)
	verdict := Decide(findings, g.policy.Mode)

	prometheus.GuardrailEvaluationTotal.WithLabelValues(
		string(direction), string(g.policy.Mode), fmt.Sprintf("%t", verdict.Allowed),
	).Inc()
	prometheus.GuardrailEvaluationDuration.WithLabelValues(string(direction)).
		Observe(time.Since(start).Seconds())
	for _, v := range verdict.Violations {
		prometheus.GuardrailViolationTotal.WithLabelValues(string(v.Kind), v.Severity.String()).Inc()
	}

	if !verdict.Allowed {
		g.logger.WithFields(logrus.Fields{
			"direction":  direction,
			"mode":       g.policy.Mode,
			"violations": summarizeViolations(verdict.Violations),
		}).Warn("blocked by guardrails")
	} else if len(verdict.Violations) > 0 && g.policy.LogViolations {
		g.logger.WithFields(logrus.Fields{
			"direction":  direction,
			"mode":       g.policy.Mode,
			"violations": summarizeViolations(verdict.Violations),
		}).Warn("guardrail violations below blocking threshold")
	}

	return verdict
}

// summarizeViolations renders violations for logging as kind/pattern/severity
// triples. The matched excerpt is deliberately left out: a PII match written
// to the log would leak the very data the check exists to contain.
func summarizeViolations(violations []Violation) []string {
	summary := make([]string, 0, len(violations))
	for _, v := range violations {
		summary = append(summary, fmt.Sprintf("%s/%s/%s", v.Kind, v.PatternID, v.Severity))
	}
	return summary
}
