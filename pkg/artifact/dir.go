package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore maps a directory on disk to the store's path space. Producers
// running as subprocesses write files under the root; verification reads
// them back through the Store contract.
//
// All store paths resolve strictly inside the root — escaping via ".." is
// rejected, never silently re-rooted.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &DirStore{root: abs}, nil
}

// Root returns the absolute directory backing the store.
func (s *DirStore) Root() string {
	return s.root
}

// resolve maps a store path to an absolute filesystem path inside the root.
func (s *DirStore) resolve(path string) (string, error) {
	rel := strings.TrimPrefix(Normalize(path), "/")
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes store root", path)
	}
	return abs, nil
}

func (s *DirStore) Read(path string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return "", unavailable(fmt.Sprintf("read %s", path), err)
	}
	return string(data), nil
}

func (s *DirStore) Exists(path string) (bool, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, unavailable(fmt.Sprintf("stat %s", path), err)
	}
	return !info.IsDir(), nil
}

func (s *DirStore) List(prefix string) ([]string, error) {
	abs, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, "/"+filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, unavailable(fmt.Sprintf("list %s", prefix), walkErr)
	}
	sort.Strings(paths)
	return paths, nil
}

// StatDir distinguishes a directory that was never created from one that
// exists but holds no files.
func (s *DirStore) StatDir(prefix string) (DirState, error) {
	abs, err := s.resolve(prefix)
	if err != nil {
		return DirMissing, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return DirMissing, nil
		}
		return DirMissing, unavailable(fmt.Sprintf("stat %s", prefix), err)
	}
	if !info.IsDir() {
		return DirMissing, nil
	}

	entries, err := s.List(prefix)
	if err != nil {
		return DirMissing, err
	}
	if len(entries) == 0 {
		return DirEmpty, nil
	}
	return DirPopulated, nil
}

func (s *DirStore) Write(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return unavailable(fmt.Sprintf("write %s", path), err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return unavailable(fmt.Sprintf("write %s", path), err)
	}
	return nil
}
