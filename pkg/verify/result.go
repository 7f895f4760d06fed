// Package verify implements deliverable quality control: existence and
// content checks over the artifacts a producer was required to create.
package verify

import "time"

// Missing reasons, as observable by the artifact store.
const (
	ReasonFileMissing = "file not found"
	ReasonDirMissing  = "directory does not exist"
	ReasonDirEmpty    = "directory exists but is empty"
	// ReasonDirMissingOrEmpty is used when the store cannot distinguish a
	// never-created directory from an empty one.
	ReasonDirMissingOrEmpty = "directory does not exist or is empty"
)

// MissingPath records one required artifact that was not found.
type MissingPath struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ContentFailure records one required substring absent from an artifact.
type ContentFailure struct {
	Path      string `json:"path"`
	Substring string `json:"substring"`
}

// Result is the outcome of one verification pass over a producer's
// deliverables. It is created fresh per call and never mutated after
// construction.
type Result struct {
	Producer        string           `json:"producer"`
	Passed          bool             `json:"passed"`
	Missing         []MissingPath    `json:"missing,omitempty"`
	ContentFailures []ContentFailure `json:"content_failures,omitempty"`
	Message         string           `json:"message"`
	Timestamp       time.Time        `json:"timestamp"`
}

// MissingPaths returns just the paths of the missing entries, in order.
func (r Result) MissingPaths() []string {
	paths := make([]string, len(r.Missing))
	for i, m := range r.Missing {
		paths[i] = m.Path
	}
	return paths
}
