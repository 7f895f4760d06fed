package artifact

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const artifactBucket = "artifacts"

// BoltStore is a bbolt-backed Store for workflow runs that must survive a
// process restart. A single bucket maps path → content.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt-backed store at the given file path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(artifactBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Read(path string) (string, error) {
	var content string
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(artifactBucket)).Get([]byte(Normalize(path)))
		if data != nil {
			content = string(data)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", unavailable(fmt.Sprintf("read %s", path), err)
	}
	if !found {
		return "", fmt.Errorf("read %s: %w", path, ErrNotFound)
	}
	return content, nil
}

func (s *BoltStore) Exists(path string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(artifactBucket)).Get([]byte(Normalize(path))) != nil
		return nil
	})
	if err != nil {
		return false, unavailable(fmt.Sprintf("stat %s", path), err)
	}
	return found, nil
}

func (s *BoltStore) List(prefix string) ([]string, error) {
	var paths []string
	pfx := []byte(Normalize(prefix))

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(artifactBucket)).Cursor()
		for k, _ := c.Seek(pfx); k != nil && bytes.HasPrefix(k, pfx); k, _ = c.Next() {
			paths = append(paths, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(fmt.Sprintf("list %s", prefix), err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *BoltStore) Write(path, content string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(artifactBucket)).Put([]byte(Normalize(path)), []byte(content))
	})
	if err != nil {
		return unavailable(fmt.Sprintf("write %s", path), err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
