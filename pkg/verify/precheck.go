package verify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stagegate/stagegate/pkg/deliverable"
)

// PrecheckResult is the outcome of a prerequisite check run before a
// producer is invoked.
type PrecheckResult struct {
	Producer  string        `json:"producer"`
	Passed    bool          `json:"passed"`
	Missing   []MissingPath `json:"missing,omitempty"`
	// Blockers names the producers that must run (or re-run) to create the
	// missing prerequisites. Excludes orchestrator-owned artifacts.
	Blockers  []string  `json:"blockers,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MissingPaths returns just the paths of the missing prerequisites, in
// order.
func (r PrecheckResult) MissingPaths() []string {
	paths := make([]string, len(r.Missing))
	for i, m := range r.Missing {
		paths[i] = m.Path
	}
	return paths
}

// Precheck verifies that every prerequisite artifact a producer needs
// exists before the producer is invoked, so a missing input is caught
// ahead of a wasted invocation. Each missing path is attributed to the
// producer responsible for creating it.
func (v *Verifier) Precheck(producer string) (PrecheckResult, error) {
	spec, err := v.registry.Lookup(producer)
	if err != nil {
		return PrecheckResult{}, err
	}

	result := PrecheckResult{
		Producer:  producer,
		Timestamp: time.Now(),
	}

	blockers := make(map[string]bool)
	for _, path := range spec.Prereqs {
		missing, err := v.checkExists(path)
		if err != nil {
			return PrecheckResult{}, err
		}
		if missing == nil {
			continue
		}
		result.Missing = append(result.Missing, *missing)
		if owner := v.registry.Owner(path); owner != "" && owner != deliverable.OwnerOrchestrator {
			blockers[owner] = true
		}
	}
	for b := range blockers {
		result.Blockers = append(result.Blockers, b)
	}
	sort.Strings(result.Blockers)

	result.Passed = len(result.Missing) == 0
	result.Message = renderPrecheck(spec, result, v.registry)
	return result, nil
}

func renderPrecheck(spec deliverable.Spec, r PrecheckResult, reg *deliverable.Registry) string {
	if r.Passed {
		return fmt.Sprintf("✓ PRE-WORK PASSED: All prerequisites verified for %s", r.Producer)
	}

	lines := make([]string, len(r.Missing))
	for i, m := range r.Missing {
		owner := reg.Owner(m.Path)
		if owner == "" {
			owner = "unknown"
		}
		lines[i] = fmt.Sprintf("%s → created by: %s", formatMissing(m), owner)
	}

	instruction := "Workflow initialization incomplete: the initial user request has not been recorded. Complete workflow initialization before invoking specialists."
	if len(r.Blockers) > 0 {
		instruction = fmt.Sprintf("Re-invoke the following producer(s) to create the missing file(s): %s",
			strings.Join(r.Blockers, ", "))
	}

	return fmt.Sprintf(`✗ PRE-WORK FAILED: Missing prerequisites for %s

Expected: %s

Missing files and responsible producers:
  - %s

REQUIRED ACTION:
%s`,
		r.Producer,
		spec.PrereqDescription,
		strings.Join(lines, "\n  - "),
		instruction,
	)
}
