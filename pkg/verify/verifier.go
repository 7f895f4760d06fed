package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/deliverable"
)

// Verifier checks a producer's deliverables against the current artifact
// store state. It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	registry *deliverable.Registry
	store    artifact.Store
}

// New creates a Verifier over the given registry and store.
func New(registry *deliverable.Registry, store artifact.Store) *Verifier {
	return &Verifier{registry: registry, store: store}
}

// Registry returns the registry this verifier was built with.
func (v *Verifier) Registry() *deliverable.Registry {
	return v.registry
}

// Verify runs the two-phase deliverable check for one producer.
//
// Phase 1 tests existence of every required path; phase 2 tests content
// rules only when nothing is missing, since the content of an absent file
// cannot be checked. All failures found in a phase are collected so a
// single corrective retry can fix everything at once.
//
// A failed check is reported in the Result, not as an error. The returned
// error is reserved for deliverable.ErrUnknownProducer (a configuration
// bug) and artifact.ErrUnavailable (an infrastructure fault); neither is a
// producer-quality signal.
func (v *Verifier) Verify(producer string) (Result, error) {
	spec, err := v.registry.Lookup(producer)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Producer:  producer,
		Timestamp: time.Now(),
	}

	// Phase 1: existence.
	for _, path := range spec.Paths {
		missing, err := v.checkExists(path)
		if err != nil {
			return Result{}, err
		}
		if missing != nil {
			result.Missing = append(result.Missing, *missing)
		}
	}

	// Phase 2: content, only against a complete deliverable set.
	if len(result.Missing) == 0 {
		for _, path := range spec.Paths {
			required, ok := spec.ContentRules[path]
			if !ok {
				continue
			}
			failures, err := v.checkContent(path, required)
			if err != nil {
				return Result{}, err
			}
			result.ContentFailures = append(result.ContentFailures, failures...)
		}
	}

	result.Passed = len(result.Missing) == 0 && len(result.ContentFailures) == 0
	result.Message = renderReport(spec, result)
	return result, nil
}

// checkExists tests one required path, returning a MissingPath when the
// store has no satisfying entry.
func (v *Verifier) checkExists(path string) (*MissingPath, error) {
	if artifact.IsDirMarker(path) {
		if stater, ok := v.store.(artifact.DirStater); ok {
			state, err := stater.StatDir(path)
			if err != nil {
				return nil, err
			}
			switch state {
			case artifact.DirMissing:
				return &MissingPath{Path: path, Reason: ReasonDirMissing}, nil
			case artifact.DirEmpty:
				return &MissingPath{Path: path, Reason: ReasonDirEmpty}, nil
			}
			return nil, nil
		}

		entries, err := v.store.List(path)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return &MissingPath{Path: path, Reason: ReasonDirMissingOrEmpty}, nil
		}
		return nil, nil
	}

	ok, err := v.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &MissingPath{Path: path, Reason: ReasonFileMissing}, nil
	}
	return nil, nil
}

// checkContent tests the required substrings for one rule entry. A rule
// keyed by a directory marker applies to every ".md" entry under the
// prefix. Every failing (path, substring) pair is recorded; there is no
// short-circuit.
func (v *Verifier) checkContent(path string, required []string) ([]ContentFailure, error) {
	targets := []string{path}
	if artifact.IsDirMarker(path) {
		entries, err := v.store.List(path)
		if err != nil {
			return nil, err
		}
		targets = targets[:0]
		for _, entry := range entries {
			if strings.HasSuffix(entry, ".md") {
				targets = append(targets, entry)
			}
		}
	}

	var failures []ContentFailure
	for _, target := range targets {
		content, err := v.store.Read(target)
		if err != nil {
			// Phase 1 saw this path; losing it mid-check is a store
			// consistency problem, not a content failure.
			return nil, fmt.Errorf("content check %s: %w", target, err)
		}
		folded := strings.ToLower(content)
		for _, sub := range required {
			if !strings.Contains(folded, strings.ToLower(sub)) {
				failures = append(failures, ContentFailure{Path: target, Substring: sub})
			}
		}
	}
	return failures, nil
}
