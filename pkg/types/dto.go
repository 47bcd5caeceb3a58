package types

import "github.com/veilgate/veilgate/pkg/guardrail"

type ChatRequest struct {
	Query        string   `json:"query"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
	Query  string `json:"query"`
	Model  string `json:"model"`
}

// ViolationEntry is the wire shape of one violation in a block response. It
// carries kind, pattern and severity only; the matched excerpt stays inside
// the process.
type ViolationEntry struct {
	Type      string `json:"type"`
	PatternID string `json:"pattern_id"`
	Severity  string `json:"severity"`
}

// BlockedResponse is the client-facing body returned when guardrails block a
// request or a generated answer.
type BlockedResponse struct {
	Error      string           `json:"error"`
	Mode       guardrail.Mode   `json:"mode"`
	Violations []ViolationEntry `json:"violations"`
	Message    string           `json:"message"`
}

func NewBlockedResponse(verdict guardrail.Verdict) BlockedResponse {
	violations := make([]ViolationEntry, 0, len(verdict.Violations))
	for _, v := range verdict.Violations {
		violations = append(violations, ViolationEntry{
			Type:      string(v.Kind),
			PatternID: v.PatternID,
			Severity:  v.Severity.String(),
		})
	}
	return BlockedResponse{
		Error:      "blocked by guardrails",
		Mode:       verdict.Mode,
		Violations: violations,
		Message:    "Your request was blocked due to safety policy violations.",
	}
}
