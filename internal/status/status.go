// Package status deterministically maps raw checker outcomes to the fixed
// verification status taxonomy and renders their diagnostic text.
package status

import (
	"fmt"
	"strings"

	"leanverify/internal/checker"
)

// Status is a verification status category.
type Status string

const (
	// NoCodeFound means no Lean code was extracted, so nothing was
	// submitted. Assigned upstream of classification.
	NoCodeFound Status = "NO_CODE_FOUND"

	// SystemError means the job failed at the infrastructure level.
	SystemError Status = "SYSTEM_ERROR"

	// Complete means the proof verified with no incomplete-proof markers.
	Complete Status = "COMPLETE"

	// PassWithIssues means the unit compiled but is not a closed proof.
	PassWithIssues Status = "PASS_WITH_ISSUES"

	// Fail means the unit did not compile.
	Fail Status = "FAIL"
)

// All lists every status in reporting order.
var All = []Status{Complete, PassWithIssues, Fail, SystemError, NoCodeFound}

// Classify maps an outcome to its status. Pure and total: the first
// matching rule wins, and infrastructure errors dominate everything,
// including a complete flag the checker may have set alongside them.
func Classify(out checker.Outcome) Status {
	switch {
	case out.SystemErrors != "":
		return SystemError
	case out.Complete:
		return Complete
	case out.Pass:
		return PassWithIssues
	default:
		return Fail
	}
}

// Describe renders the human-readable diagnostic for an outcome. Sections
// appear in fixed order, one blank line apart: system errors, compiler
// errors, warnings, then incomplete-proof markers. When no section
// applies, a fixed message keyed by status is returned. Identical inputs
// always yield identical text.
func Describe(out checker.Outcome, st Status) string {
	if st == NoCodeFound {
		return "NO_CODE_FOUND: No Lean code extracted from response"
	}

	var parts []string

	if out.SystemErrors != "" {
		parts = append(parts, "SYSTEM_ERRORS: "+out.SystemErrors)
	}

	if len(out.Errors) > 0 {
		parts = append(parts, "LEAN_ERRORS:\n"+renderMessages("Error", out.Errors))
	}

	if len(out.Warnings) > 0 {
		parts = append(parts, "WARNINGS:\n"+renderMessages("Warning", out.Warnings))
	}

	if len(out.Sorries) > 0 {
		parts = append(parts, fmt.Sprintf("SORRIES: %d sorry statements found: %v",
			len(out.Sorries), out.Sorries))
	}

	if len(parts) == 0 {
		switch st {
		case Complete:
			return "SUCCESS: Proof verified successfully"
		case PassWithIssues:
			return "PASS_WITH_ISSUES: Code compiles but may have minor issues"
		default:
			return "UNKNOWN: No specific errors found but verification failed"
		}
	}

	return strings.Join(parts, "\n\n")
}

func renderMessages(kind string, msgs []checker.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s %d (line %d, col %d): %s", kind, i+1, m.Line, m.Column, m.Data)
	}
	return strings.Join(lines, "\n")
}
