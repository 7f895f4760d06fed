package workflow

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/stagegate/stagegate/pkg/artifact"
)

// Snapshot captures the artifact store contents at a point in time as
// per-path content hashes. Comparing snapshots taken around a stage
// shows exactly what the producer touched.
type Snapshot struct {
	Hashes    map[string]string `json:"hashes"`
	Timestamp time.Time         `json:"timestamp"`
}

// Change records one difference between two snapshots.
type Change struct {
	Path string `json:"path"`
	Type string `json:"type"` // "added", "removed", "modified"
}

// Capture hashes every artifact currently in the store.
func Capture(store artifact.Store) (Snapshot, error) {
	paths, err := store.List("/")
	if err != nil {
		return Snapshot{}, fmt.Errorf("list artifacts: %w", err)
	}

	hashes := make(map[string]string, len(paths))
	for _, path := range paths {
		content, err := store.Read(path)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read %s: %w", path, err)
		}
		hashes[path] = fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	}

	return Snapshot{Hashes: hashes, Timestamp: time.Now()}, nil
}

// Diff compares two snapshots and returns the changes from a to b,
// sorted by path.
func Diff(a, b Snapshot) []Change {
	var changes []Change

	for path, hashA := range a.Hashes {
		hashB, ok := b.Hashes[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Type: "removed"})
		case hashA != hashB:
			changes = append(changes, Change{Path: path, Type: "modified"})
		}
	}
	for path := range b.Hashes {
		if _, ok := a.Hashes[path]; !ok {
			changes = append(changes, Change{Path: path, Type: "added"})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}
