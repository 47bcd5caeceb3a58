package guardrail

// blockThreshold is the minimum severity that blocks under a mode. The
// ordering strict > moderate > permissive (by number of blocking severities)
// falls directly out of the Severity order: strict blocks on anything,
// moderate on high or critical, permissive only on critical.
func blockThreshold(mode Mode) Severity {
	switch mode {
	case ModeStrict:
		return SeverityLow
	case ModePermissive:
		return SeverityCritical
	default:
		return SeverityHigh
	}
}

// Decide turns a finding set into an allow/block Verdict. The finding slice
// is copied into the verdict in the order the Runner produced it and is never
// mutated.
func Decide(findings []Finding, mode Mode) Verdict {
	threshold := blockThreshold(mode)
	allowed := true
	for _, f := range findings {
		if f.Severity >= threshold {
			allowed = false
			break
		}
	}

	violations := make([]Violation, len(findings))
	copy(violations, findings)

	return Verdict{
		Allowed:    allowed,
		Violations: violations,
		Mode:       mode,
	}
}
