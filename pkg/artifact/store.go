package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested artifact path has no entry.
// Absence is a normal outcome during verification, not a fault.
var ErrNotFound = errors.New("artifact not found")

// ErrUnavailable marks infrastructure faults in the backing store.
// Callers must treat these as fatal to the current verification attempt
// rather than as a producer-quality failure.
var ErrUnavailable = errors.New("artifact store unavailable")

// Store is the read-only view of all artifacts produced so far in a
// workflow run. Paths are slash-separated and rooted at "/", matching the
// convention producers use ("/impact_assessment.md", "/THE_SPEC/plan.md").
// All implementations are safe for concurrent reads.
type Store interface {
	// Read returns the full text content at path, or ErrNotFound.
	Read(path string) (string, error)

	// Exists reports whether an entry exists at the exact path.
	Exists(path string) (bool, error)

	// List returns all entry paths under the given prefix, sorted.
	// An empty result is not an error.
	List(prefix string) ([]string, error)
}

// Writer is implemented by stores that producers can write into.
// The verification core itself never writes.
type Writer interface {
	Write(path, content string) error
}

// DirState describes what a store can observe about a directory marker.
type DirState int

const (
	DirMissing DirState = iota
	DirEmpty
	DirPopulated
)

// DirStater is implemented by stores that can distinguish an existing but
// empty directory from one that was never created. Stores that model only
// flat path→content entries (memory, bbolt) cannot make that distinction
// and do not implement it.
type DirStater interface {
	StatDir(prefix string) (DirState, error)
}

// IsDirMarker reports whether a required path denotes a directory
// ("at least one entry under this prefix") rather than a single file.
func IsDirMarker(path string) bool {
	return strings.HasSuffix(path, "/")
}

// Normalize ensures a path is slash-separated and rooted at "/".
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}
