package guardrail

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// parallelScanThreshold is the input size above which detectors run on
// separate goroutines. Parallelism is a latency optimization only; the result
// is identical either way because each detector writes to its own slot.
const parallelScanThreshold = 64 * 1024

// Runner applies the policy-selected detectors for one direction to a single
// text body. It holds no state besides the logger and is safe for concurrent
// use.
type Runner struct {
	logger *logrus.Logger
}

func NewRunner(logger *logrus.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run scans text with every detector selected by checks and returns the
// findings sorted by (severity descending, pattern_id ascending, offset
// ascending). Identical inputs always yield an identical sequence. A detector
// that panics contributes zero findings; the scan as a whole never fails.
func (r *Runner) Run(text string, checks map[CheckKind]bool, policy *Policy) []Finding {
	detectors := r.selectDetectors(checks, policy)

	var findings []Finding
	if len(text) >= parallelScanThreshold && len(detectors) > 1 {
		findings = r.scanParallel(text, detectors)
	} else {
		for _, d := range detectors {
			findings = append(findings, r.scan(text, d)...)
		}
	}

	if checks[CheckExcessiveLength] {
		if f := checkLength(text, policy.MaxLength); f != nil {
			findings = append(findings, *f)
		}
	}

	sortFindings(findings)
	return findings
}

func (r *Runner) selectDetectors(checks map[CheckKind]bool, policy *Policy) []Detector {
	var selected []Detector
	for _, kind := range []CheckKind{CheckPII, CheckPromptInjection, CheckHarmfulContent} {
		if checks[kind] {
			selected = append(selected, builtinDetectors[kind]...)
		}
	}
	if checks[CheckCustom] {
		selected = append(selected, policy.Custom...)
	}
	return selected
}

func (r *Runner) scanParallel(text string, detectors []Detector) []Finding {
	slots := make([][]Finding, len(detectors))
	var g errgroup.Group
	for i, d := range detectors {
		i, d := i, d
		g.Go(func() error {
			slots[i] = r.scan(text, d)
			return nil
		})
	}
	_ = g.Wait() // scan never returns an error

	var findings []Finding
	for _, slot := range slots {
		findings = append(findings, slot...)
	}
	return findings
}

// scan shields the evaluation from a single misbehaving detector: a panic is
// recovered, logged as a warning and treated as zero findings.
func (r *Runner) scan(text string, d Detector) (findings []Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			findings = nil
			r.logger.WithFields(logrus.Fields{
				"pattern_id": d.ID,
				"kind":       d.Kind,
				"panic":      fmt.Sprintf("%v", rec),
			}).Warn("detector failure, skipping")
		}
	}()
	return d.Scan(text)
}

func checkLength(text string, maxLength int) *Finding {
	if len(text) <= maxLength {
		return nil
	}
	return &Finding{
		Kind:      CheckExcessiveLength,
		PatternID: "max_length",
		Severity:  SeverityMedium,
		Match:     fmt.Sprintf("input length %d exceeds limit %d", len(text), maxLength),
	}
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		if findings[i].PatternID != findings[j].PatternID {
			return findings[i].PatternID < findings[j].PatternID
		}
		return findingOffset(findings[i]) < findingOffset(findings[j])
	})
}

func findingOffset(f Finding) int {
	if f.Location == nil {
		return 0
	}
	return f.Location.Start
}
