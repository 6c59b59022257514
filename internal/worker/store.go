package worker

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/replikv/replikv/internal/cluster"
)

// Store is a worker's local key-value store: an in-memory map for the
// read path backed by one JSON artifact per key on disk. Writes on the
// same key serialize through a per-key lock so the file and the map
// cannot diverge; durability means the artifact is flushed before the
// write is acknowledged.
type Store struct {
	dir    string
	values *xsync.MapOf[string, string]
	locks  *xsync.MapOf[string, *sync.Mutex]
}

// OpenStore opens (creating if needed) the store rooted at dir and loads
// every artifact into memory. Artifacts that cannot be decoded are
// skipped; a half-written temp file left by a crash is ignored.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	s := &Store{
		dir:    dir,
		values: xsync.NewMapOf[string, string](),
		locks:  xsync.NewMapOf[string, *sync.Mutex](),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		key, err := url.QueryUnescape(e.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var envelope cluster.ValueEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}
		s.values.Store(key, envelope.Value)
	}
	return s, nil
}

// Get returns the value for key from memory, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	value, ok := s.values.Load(key)
	if !ok {
		return "", fmt.Errorf("get %q: %w", key, cluster.ErrNotFound)
	}
	return value, nil
}

// Put durably writes key=value: artifact first (flushed), then the
// in-memory map. Rewriting an existing (key, value) pair is a semantic
// no-op and succeeds, which makes replicate and pull delivery idempotent.
func (s *Store) Put(key, value string) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := s.writeArtifact(key, value); err != nil {
		return err
	}
	s.values.Store(key, value)
	return nil
}

// Delete removes key from memory and disk. Deleting an absent key
// succeeds.
func (s *Store) Delete(key string) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	s.values.Delete(key)
	err := os.Remove(s.artifactPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	return nil
}

// Keys returns the keys currently present, in no particular order. The
// slice is never nil.
func (s *Store) Keys() []string {
	keys := make([]string, 0, s.values.Size())
	s.values.Range(func(key string, _ string) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Len returns the number of keys currently present.
func (s *Store) Len() int {
	return s.values.Size()
}

func (s *Store) lockFor(key string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return lock
}

// tmpSuffix marks in-progress writes. url.QueryEscape always encodes
// '%', so no artifact name can end with it.
const tmpSuffix = "%tmp"

func (s *Store) artifactPath(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key))
}

// writeArtifact persists the envelope for key via write-temp, fsync,
// rename so a crash mid-write never corrupts the previous artifact.
func (s *Store) writeArtifact(key, value string) error {
	data, err := json.Marshal(cluster.ValueEnvelope{Value: value})
	if err != nil {
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	path := s.artifactPath(key)
	tmp := path + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist %q: %v: %w", key, err, cluster.ErrStorageFailure)
	}
	return nil
}
