// Package cas implements the output store: one JSON record per unit, addressed by the hash of the unit name.
package cas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputStore = (*Store)(nil)

// Store implements ports.OutputStore on a directory of JSON files.
type Store struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]domain.OutputRecord
}

// NewStore creates a new OutputStore rooted at dir. The directory is created on first Put.
func NewStore(dir string) *Store {
	return &Store{
		dir:   filepath.Clean(dir),
		cache: make(map[string]domain.OutputRecord),
	}
}

func (s *Store) pathFor(unit string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%016x.json", xxhash.Sum64String(unit)))
}

// Get retrieves the record for unit, or nil if none was stored.
func (s *Store) Get(unit string) (*domain.OutputRecord, error) {
	s.mu.RLock()
	rec, ok := s.cache[unit]
	s.mu.RUnlock()
	if ok {
		return &rec, nil
	}

	path := s.pathFor(unit)
	//nolint:gosec // Path is derived from the store directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read output record"), "path", path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal output record"), "path", path)
	}
	if rec.Unit != unit {
		// Hash collision with another unit.
		return nil, nil
	}

	s.mu.Lock()
	s.cache[unit] = rec
	s.mu.Unlock()
	return &rec, nil
}

// Put stores the record, replacing any previous record of the same unit.
func (s *Store) Put(record domain.OutputRecord) error {
	if record.Unit == "" {
		return zerr.New("output record has no unit")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal output record")
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output store"), "path", s.dir)
	}

	path := s.pathFor(record.Unit)
	tmp := path + ".tmp"
	//nolint:gosec // Path is derived from the store directory
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write output record"), "path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to commit output record"), "path", path)
	}

	s.mu.Lock()
	s.cache[record.Unit] = record
	s.mu.Unlock()
	return nil
}
