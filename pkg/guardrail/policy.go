package guardrail

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ErrPolicyNotFound marks a missing policy source. The bootstrap layer decides
// whether to fall back to DefaultPolicy or refuse to start.
var ErrPolicyNotFound = errors.New("guardrail policy file not found")

// ConfigError reports a malformed or unrecognized policy source. It is fatal
// to Gate startup and never produced after Load.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("guardrail policy: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("guardrail policy: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

const defaultMaxLength = 10000

// Policy is the single source of truth for what gets checked and how
// strictly. It is built once at startup and treated as read-only afterwards,
// so it may be shared across any number of concurrent evaluations without
// synchronization.
type Policy struct {
	Mode           Mode
	InboundChecks  map[CheckKind]bool
	OutboundChecks map[CheckKind]bool
	MaxLength      int
	Custom         []Detector
	LogViolations  bool
}

// policyFile mirrors the guardrails.yaml schema.
type policyFile struct {
	Mode           string                 `mapstructure:"mode"`
	InputChecks    map[string]interface{} `mapstructure:"input_checks"`
	OutputChecks   map[string]interface{} `mapstructure:"output_checks"`
	CustomPatterns []customPattern        `mapstructure:"custom_patterns"`
	LogViolations  *bool                  `mapstructure:"log_violations"`
}

type customPattern struct {
	Name     string `mapstructure:"name"`
	Pattern  string `mapstructure:"pattern"`
	Severity string `mapstructure:"severity"`
}

// DefaultPolicy is the fail-toward-availability fallback used when no policy
// source is present: moderate mode, every inbound check enabled, PII and
// harmful-content checks on the outbound side.
func DefaultPolicy() *Policy {
	return &Policy{
		Mode: ModeModerate,
		InboundChecks: map[CheckKind]bool{
			CheckPII:             true,
			CheckPromptInjection: true,
			CheckHarmfulContent:  true,
			CheckExcessiveLength: true,
		},
		OutboundChecks: map[CheckKind]bool{
			CheckPII:            true,
			CheckHarmfulContent: true,
		},
		MaxLength:     defaultMaxLength,
		LogViolations: true,
	}
}

// LoadPolicy reads and validates a policy source. Any malformed content,
// unknown check kind, unknown mode or uncompilable custom pattern yields a
// *ConfigError; a missing file yields a *ConfigError wrapping
// ErrPolicyNotFound. LoadPolicy is called once at process start; there is no
// runtime update path, restart to pick up changes.
func LoadPolicy(path string) (*Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Reason: path, Err: ErrPolicyNotFound}
		}
		return nil, &ConfigError{Reason: "unreadable policy file", Err: err}
	}

	var file policyFile
	if err := v.Unmarshal(&file, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = false
	}); err != nil {
		return nil, &ConfigError{Reason: "failed to decode policy file", Err: err}
	}

	return buildPolicy(file)
}

func buildPolicy(file policyFile) (*Policy, error) {
	mode, err := ParseMode(file.Mode)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid mode", Err: err}
	}

	policy := &Policy{
		Mode:          mode,
		MaxLength:     defaultMaxLength,
		LogViolations: true,
	}
	if file.LogViolations != nil {
		policy.LogViolations = *file.LogViolations
	}

	policy.InboundChecks, err = decodeCheckSet(file.InputChecks, policy)
	if err != nil {
		return nil, err
	}
	outbound := policyFileChecksWithoutLength(file.OutputChecks)
	policy.OutboundChecks, err = decodeCheckSet(outbound, nil)
	if err != nil {
		return nil, err
	}

	if policy.MaxLength <= 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("max_length must be positive, got %d", policy.MaxLength)}
	}

	for i, cp := range file.CustomPatterns {
		detector, err := compileCustomPattern(i, cp)
		if err != nil {
			return nil, err
		}
		policy.Custom = append(policy.Custom, detector)
	}
	if len(policy.Custom) > 0 {
		policy.InboundChecks[CheckCustom] = true
		policy.OutboundChecks[CheckCustom] = true
	}

	return policy, nil
}

// decodeCheckSet turns a per-kind boolean map into a check set. The
// max_length entry is only meaningful for input checks; when lengthSink is
// non-nil its value is stored there.
func decodeCheckSet(raw map[string]interface{}, lengthSink *Policy) (map[CheckKind]bool, error) {
	checks := make(map[CheckKind]bool, len(raw))
	for key, value := range raw {
		if key == "max_length" && lengthSink != nil {
			n, ok := toInt(value)
			if !ok {
				return nil, &ConfigError{Reason: fmt.Sprintf("max_length must be an integer, got %T", value)}
			}
			lengthSink.MaxLength = n
			continue
		}
		kind, err := ParseCheckKind(key)
		if err != nil {
			return nil, &ConfigError{Reason: "invalid check set", Err: err}
		}
		enabled, ok := value.(bool)
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("check %q must be a boolean, got %T", key, value)}
		}
		if enabled {
			checks[kind] = true
		}
	}
	return checks, nil
}

func policyFileChecksWithoutLength(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "max_length" {
			continue
		}
		out[k] = v
	}
	return out
}

func compileCustomPattern(index int, cp customPattern) (Detector, error) {
	if cp.Pattern == "" {
		return Detector{}, &ConfigError{Reason: fmt.Sprintf("custom pattern %d: pattern cannot be empty", index)}
	}
	severity, err := ParseSeverity(cp.Severity)
	if err != nil {
		return Detector{}, &ConfigError{Reason: fmt.Sprintf("custom pattern %d", index), Err: err}
	}
	re, err := regexp.Compile(cp.Pattern)
	if err != nil {
		return Detector{}, &ConfigError{Reason: fmt.Sprintf("custom pattern %d: invalid regex", index), Err: err}
	}
	name := cp.Name
	if name == "" {
		name = fmt.Sprintf("custom_%02d", index)
	}
	return NewDetector(CheckCustom, name, severity, re), nil
}

// ChecksFor selects the check set for one evaluation direction.
func (p *Policy) ChecksFor(direction Direction) map[CheckKind]bool {
	if direction == Outbound {
		return p.OutboundChecks
	}
	return p.InboundChecks
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}
