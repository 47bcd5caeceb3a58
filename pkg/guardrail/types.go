package guardrail

import (
	"encoding/json"
	"fmt"
)

// Mode controls how strictly findings translate into a block decision.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModeModerate   Mode = "moderate"
	ModePermissive Mode = "permissive"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModeModerate, ModePermissive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

// CheckKind is the category of risk a detector targets.
type CheckKind string

const (
	CheckPII             CheckKind = "pii"
	CheckPromptInjection CheckKind = "prompt_injection"
	CheckHarmfulContent  CheckKind = "harmful_content"
	CheckExcessiveLength CheckKind = "excessive_length"
	CheckCustom          CheckKind = "custom"
)

func ParseCheckKind(s string) (CheckKind, error) {
	switch CheckKind(s) {
	case CheckPII, CheckPromptInjection, CheckHarmfulContent, CheckExcessiveLength, CheckCustom:
		return CheckKind(s), nil
	default:
		return "", fmt.Errorf("unknown check kind: %q", s)
	}
}

// Severity is totally ordered: low < medium < high < critical.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity: %q", s)
	}
}

// Span marks the byte offsets of a match within the scanned text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Finding is one raw detector match against a text body.
type Finding struct {
	Kind      CheckKind `json:"kind"`
	PatternID string    `json:"pattern_id"`
	Severity  Severity  `json:"severity"`
	Match     string    `json:"match,omitempty"`
	Location  *Span     `json:"location,omitempty"`
}

// Violation is a Finding surfaced in a Verdict's report.
type Violation = Finding

// Verdict is the allow/block decision for one evaluation call. It is built
// fresh per call and never mutated afterwards.
type Verdict struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations"`
	Mode       Mode        `json:"mode"`
}
