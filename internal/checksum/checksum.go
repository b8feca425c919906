// Package checksum persists content fingerprints of every artifact the sync
// engine has written, keyed by output-relative path.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/snapetech/m3u2strm/internal/logging"
)

// FileName is the default store name inside the output directory.
const FileName = ".checksums.json"

// Store maps slash-separated relative paths to lowercase hex MD5 digests.
type Store struct {
	mu     sync.RWMutex
	path   string
	sums   map[string]string
	logger *log.Logger
}

// New returns an empty store that saves to path.
func New(path string, logger *log.Logger) *Store {
	return &Store{path: path, sums: make(map[string]string), logger: logging.Component(logger, "checksum")}
}

// Load reads the store at path. A missing file yields an empty store; an
// unreadable or corrupt file is logged and also yields an empty store, so the
// next sync rewrites everything it produces.
func Load(path string, logger *log.Logger) *Store {
	s := New(path, logger)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("checksum store unreadable, starting empty", "path", path, "err", err)
		}
		return s
	}
	var sums map[string]string
	if err := json.Unmarshal(data, &sums); err != nil {
		s.logger.Warn("checksum store corrupt, starting empty", "path", path, "err", err)
		return s
	}
	for k, v := range sums {
		s.sums[k] = v
	}
	s.logger.Debug("checksum store loaded", "path", path, "entries", len(s.sums))
	return s
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sums[key]
	return v, ok
}

func (s *Store) Set(key, sum string) {
	s.mu.Lock()
	s.sums[key] = sum
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.sums, key)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sums)
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.sums))
	for k, v := range s.sums {
		out[k] = v
	}
	return out
}

// Diff lists keys that were added or whose digest changed since before.
// Removed keys are reported separately.
func (s *Store) Diff(before map[string]string) (changed, removed []string) {
	s.mu.RLock()
	for k, v := range s.sums {
		if old, ok := before[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range before {
		if _, ok := s.sums[k]; !ok {
			removed = append(removed, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

// Save writes the store as indented JSON via a temp file and rename in the
// destination directory.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.sums, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(s.path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checksum save: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checksums-*.json.tmp")
	if err != nil {
		return fmt.Errorf("checksum save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("checksum save: write: %w", writeErr)
		}
		return fmt.Errorf("checksum save: close: %w", closeErr)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checksum save: rename: %w", err)
	}
	return nil
}

// Key converts an absolute artifact path under root into a store key.
func Key(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Fingerprint is the lowercase hex MD5 of data.
func Fingerprint(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
