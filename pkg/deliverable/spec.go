// Package deliverable defines which artifacts each producer in a workflow
// is required to create, and which inputs it needs before it can run.
// The registry is pure data: adding a producer never touches verification
// logic.
package deliverable

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProducer is returned when a producer identity has no registered
// deliverable spec. This is a wiring bug in the caller's configuration and
// is never retried.
var ErrUnknownProducer = errors.New("unknown producer")

// OwnerOrchestrator marks artifacts created during workflow initialization
// rather than by a retryable producer.
const OwnerOrchestrator = "orchestrator"

// Spec describes the mandatory deliverables of one producer.
type Spec struct {
	// Paths is the ordered set of required artifact paths. A trailing "/"
	// marks a directory that must exist and contain at least one entry.
	Paths []string `yaml:"paths"`

	// Description explains what the deliverable represents. Used in
	// failure reports, never in verification logic.
	Description string `yaml:"description"`

	// ContentRules maps an artifact path to substrings its content must
	// contain (case-insensitive). A key with a trailing "/" applies each
	// substring to every ".md" entry under that prefix.
	ContentRules map[string][]string `yaml:"content_rules,omitempty"`

	// Stage is a generic, user-safe label for the workflow stage this
	// producer serves ("guardrail assessment", "specification generation").
	// It is the only producer-related string allowed in user-facing halt
	// messages.
	Stage string `yaml:"stage"`

	// Prereqs lists artifact paths that must exist before the producer is
	// invoked.
	Prereqs []string `yaml:"prereqs,omitempty"`

	// PrereqDescription explains what the prerequisites provide.
	PrereqDescription string `yaml:"prereq_description,omitempty"`
}

// Registry is the immutable mapping from producer identity to its
// deliverable spec, plus the ownership map naming which producer creates
// each artifact. Safe for concurrent reads; never mutated after New.
type Registry struct {
	specs  map[string]Spec
	owners map[string]string
	names  []string
}

// New builds a registry from producer specs and an artifact ownership map.
// Ownership entries for paths no producer requires are allowed; they only
// affect prerequisite failure reports.
func New(specs map[string]Spec, owners map[string]string) *Registry {
	r := &Registry{
		specs:  make(map[string]Spec, len(specs)),
		owners: make(map[string]string, len(owners)),
	}
	for name, spec := range specs {
		r.specs[name] = spec
		r.names = append(r.names, name)
	}
	for path, owner := range owners {
		r.owners[path] = owner
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the spec registered for a producer identity.
func (r *Registry) Lookup(producer string) (Spec, error) {
	spec, ok := r.specs[producer]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q (registered: %s)",
			ErrUnknownProducer, producer, strings.Join(r.names, ", "))
	}
	return spec, nil
}

// Producers returns all registered producer identities, sorted.
func (r *Registry) Producers() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Owner returns the producer responsible for creating an artifact path,
// or OwnerOrchestrator when the path belongs to workflow initialization,
// or "" when nothing claims it.
func (r *Registry) Owner(path string) string {
	return r.owners[path]
}
