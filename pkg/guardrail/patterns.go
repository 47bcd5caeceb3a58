package guardrail

import (
	"regexp"
	"unicode/utf8"
)

// maxExcerpt bounds the matched text carried on a Finding so a verdict never
// drags an arbitrarily large slice of the input along with it.
const maxExcerpt = 100

// Detector recognizes one category of risk in a text body. Detectors are
// stateless and safe for concurrent use: Scan reads only the precompiled
// pattern. Go's regexp engine is RE2, so matching is linear in the input and
// cannot backtrack catastrophically.
type Detector struct {
	Kind     CheckKind
	ID       string
	Severity Severity
	pattern  *regexp.Regexp
}

func NewDetector(kind CheckKind, id string, severity Severity, pattern *regexp.Regexp) Detector {
	return Detector{Kind: kind, ID: id, Severity: severity, pattern: pattern}
}

// Scan reports every match of the detector's pattern as a Finding. A nil or
// empty result is the only negative signal; Scan never fails.
func (d Detector) Scan(text string) []Finding {
	locs := d.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	findings := make([]Finding, 0, len(locs))
	for _, loc := range locs {
		findings = append(findings, Finding{
			Kind:      d.Kind,
			PatternID: d.ID,
			Severity:  d.Severity,
			Match:     truncateMatch(text[loc[0]:loc[1]]),
			Location:  &Span{Start: loc[0], End: loc[1]},
		})
	}
	return findings
}

func truncateMatch(match string) string {
	if len(match) <= maxExcerpt {
		return match
	}
	// Back up to a rune boundary so the excerpt stays valid UTF-8.
	cut := maxExcerpt - 3
	for cut > 0 && !utf8.RuneStart(match[cut]) {
		cut--
	}
	return match[:cut] + "..."
}

var piiDetectors = []Detector{
	NewDetector(CheckPII, "pii_email", SeverityHigh,
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)),
	NewDetector(CheckPII, "pii_phone", SeverityHigh,
		regexp.MustCompile(`\b(\+\d{1,2}\s?)?(\()?\d{3}(\))?[\s.-]?\d{3}[\s.-]?\d{4}\b`)),
	NewDetector(CheckPII, "pii_ssn", SeverityHigh,
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)),
	NewDetector(CheckPII, "pii_credit_card", SeverityHigh,
		regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)),
	// Credential-shaped tokens leak access, not just identity.
	NewDetector(CheckPII, "pii_api_key", SeverityCritical,
		regexp.MustCompile(`\b(sk-|pk-|api[_-]?key[_-]?)[a-zA-Z0-9]{20,}\b`)),
	NewDetector(CheckPII, "pii_jwt", SeverityCritical,
		regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`)),
}

var injectionDetectors = []Detector{
	NewDetector(CheckPromptInjection, "inj_ignore_previous", SeverityHigh,
		regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+(instructions|commands|rules)`)),
	NewDetector(CheckPromptInjection, "inj_disregard_system", SeverityHigh,
		regexp.MustCompile(`(?i)disregard\s+(the\s+)?(system|above)\s+(prompt|instructions)`)),
	NewDetector(CheckPromptInjection, "inj_role_override", SeverityHigh,
		regexp.MustCompile(`(?i)you\s+are\s+now\s+[a-z]`)),
	NewDetector(CheckPromptInjection, "inj_no_restrictions", SeverityHigh,
		regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+(are|have)\s+no\s+restrictions|an?\s+unrestricted)`)),
	NewDetector(CheckPromptInjection, "inj_forget", SeverityHigh,
		regexp.MustCompile(`(?i)forget\s+(everything|all|previous)`)),
	NewDetector(CheckPromptInjection, "inj_system_prefix", SeverityHigh,
		regexp.MustCompile(`(?i)system\s*:\s*you\s+are`)),
	NewDetector(CheckPromptInjection, "inj_privileged_mode", SeverityHigh,
		regexp.MustCompile(`(?i)\b(admin|developer)\s+mode\b`)),
	NewDetector(CheckPromptInjection, "inj_jailbreak", SeverityHigh,
		regexp.MustCompile(`(?i)\bjailbreak\b`)),
}

var harmfulDetectors = []Detector{
	NewDetector(CheckHarmfulContent, "harm_violence", SeverityHigh,
		regexp.MustCompile(`(?i)\b(how\s+to\s+(kill|hurt|poison|strangle)|build\s+a\s+bomb|make\s+(a\s+)?(bomb|explosive|weapon)|mass\s+shooting)\b`)),
	NewDetector(CheckHarmfulContent, "harm_hate", SeverityHigh,
		regexp.MustCompile(`(?i)\b(ethnic\s+cleansing|racial\s+slur|gas\s+the|exterminate\s+(all\s+)?(the\s+)?\w+\s+people)\b`)),
	NewDetector(CheckHarmfulContent, "harm_illegal", SeverityMedium,
		regexp.MustCompile(`(?i)\b(exploit|hack\s+into|bypass\s+(security|authentication)|malware|ransomware|phishing|steal\s+credentials|launder\s+money)\b`)),
}

// builtinDetectors maps each pattern-backed CheckKind to its detector set,
// resolved once at package init rather than per call. CheckExcessiveLength is
// not pattern-based and is handled by the Runner against Policy.MaxLength;
// CheckCustom detectors are compiled from the Policy at load time.
var builtinDetectors = map[CheckKind][]Detector{
	CheckPII:             piiDetectors,
	CheckPromptInjection: injectionDetectors,
	CheckHarmfulContent:  harmfulDetectors,
}
