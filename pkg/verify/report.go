package verify

import (
	"fmt"
	"strings"

	"github.com/stagegate/stagegate/pkg/deliverable"
)

// renderReport formats a Result as the tool-facing text report. The
// failure form is written so the orchestrating caller can feed it back to
// the producer verbatim as a corrective instruction.
func renderReport(spec deliverable.Spec, r Result) string {
	if r.Passed {
		return fmt.Sprintf("✓ QC PASSED: All mandatory deliverables verified for %s", r.Producer)
	}

	var sections []string

	if len(r.Missing) > 0 {
		lines := make([]string, len(r.Missing))
		for i, m := range r.Missing {
			lines[i] = formatMissing(m)
		}
		sections = append(sections, "Missing files:\n  - "+strings.Join(lines, "\n  - "))
	}

	if len(r.ContentFailures) > 0 {
		lines := make([]string, len(r.ContentFailures))
		for i, f := range r.ContentFailures {
			lines[i] = fmt.Sprintf("%s: missing required content %q", f.Path, f.Substring)
		}
		sections = append(sections, "Content validation failures:\n  - "+strings.Join(lines, "\n  - "))
	}

	return fmt.Sprintf(`✗ QC FAILED: Deliverable validation failed for %s

Expected: %s

%s

REQUIRED ACTION:
Re-invoke the %s with a detailed prompt specifying what needs to be fixed.
The producer must %s before the workflow can proceed to the next step.

Example revision prompt:
%q`,
		r.Producer,
		spec.Description,
		strings.Join(sections, "\n\n"),
		r.Producer,
		actionSummary(r),
		r.RevisionPrompt(),
	)
}

func formatMissing(m MissingPath) string {
	if m.Reason == ReasonFileMissing {
		return m.Path
	}
	return fmt.Sprintf("%s (%s)", m.Path, m.Reason)
}

func actionSummary(r Result) string {
	switch {
	case len(r.Missing) > 0 && len(r.ContentFailures) > 0:
		return "create the missing files AND fix the content issues"
	case len(r.Missing) > 0:
		return "create the missing files"
	default:
		return "fix the content validation issues"
	}
}

// RevisionPrompt builds the corrective instruction derived from this
// result, itemizing every problem so one retry can address all of them.
// Empty on a passing result.
func (r Result) RevisionPrompt() string {
	if r.Passed {
		return ""
	}

	var b strings.Builder
	b.WriteString("The QC check failed. You must")

	switch {
	case len(r.Missing) > 0 && len(r.ContentFailures) > 0:
		b.WriteString(":\n1. Create the following missing files:\n")
		for _, m := range r.Missing {
			fmt.Fprintf(&b, "   - %s\n", formatMissing(m))
		}
		b.WriteString("\n2. Fix the following content issues:\n")
		for _, f := range r.ContentFailures {
			fmt.Fprintf(&b, "   - %s: missing required content %q\n", f.Path, f.Substring)
		}
	case len(r.Missing) > 0:
		b.WriteString(" create the following missing files:\n")
		for _, m := range r.Missing {
			fmt.Fprintf(&b, "   - %s\n", formatMissing(m))
		}
	default:
		b.WriteString(" fix the following content issues:\n")
		for _, f := range r.ContentFailures {
			fmt.Fprintf(&b, "   - %s: missing required content %q\n", f.Path, f.Substring)
		}
	}

	b.WriteString("\nPlease generate/update these files now according to the implementation plan.")
	return b.String()
}
