// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the library's metadata records. The YAML index
// file is the single source of truth; a SQLite catalog derived from it
// powers full-text search and statistics.
package index

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litfiler/internal/atomicfile"
	"github.com/pdiddy/litfiler/pkg/types"
)

// indexFile is the on-disk shape of the library index.
type indexFile struct {
	Version int                              `yaml:"version"`
	Papers  map[string]*types.MetadataRecord `yaml:"papers"`
}

// Store is the persisted collection of all metadata records, keyed by
// stable paper id. Reads and writes go through a single-writer lock and
// every mutation is persisted atomically before it returns.
type Store struct {
	mu    sync.Mutex
	path  string
	state indexFile
}

// Open loads the index from path, or starts empty when the file does not
// exist. A present-but-unparseable index is a fatal error: every
// duplicate and filing decision depends on it, so starting over silently
// would be worse than stopping.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		state: indexFile{Version: 1, Papers: make(map[string]*types.MetadataRecord)},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading library index %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parsing library index %s: %w", path, err)
	}
	if s.state.Papers == nil {
		s.state.Papers = make(map[string]*types.MetadataRecord)
	}
	return s, nil
}

// Path returns the index file location.
func (s *Store) Path() string { return s.path }

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Papers)
}

// Get returns the record for a paper id, or nil.
func (s *Store) Get(id string) *types.MetadataRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Papers[id]
}

// FindByDOI returns the record with the given normalized DOI, or nil.
func (s *Store) FindByDOI(doi string) *types.MetadataRecord {
	doi = types.NormalizeDOI(doi)
	if doi == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.state.Papers {
		if types.NormalizeDOI(rec.DOI) == doi {
			return rec
		}
	}
	return nil
}

// All returns every record, sorted by id for deterministic iteration.
func (s *Store) All() []*types.MetadataRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.state.Papers))
	for id := range s.state.Papers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*types.MetadataRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.state.Papers[id])
	}
	return out
}

// ByStatus returns all records with the given filing status, sorted by id.
func (s *Store) ByStatus(status types.FilingStatus) []*types.MetadataRecord {
	var out []*types.MetadataRecord
	for _, rec := range s.All() {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// Put inserts or replaces the record under its stable id and persists the
// index. An id cannot be derived for a record with neither DOI nor file
// hash; that is a programming error upstream and is rejected.
func (s *Store) Put(rec *types.MetadataRecord) error {
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("record for %s has neither DOI nor file hash", rec.OriginalFilename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Papers[id] = rec
	return s.save()
}

// Delete removes a record and persists the index. Removing an absent id is
// a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Papers[id]; !ok {
		return nil
	}
	delete(s.state.Papers, id)
	return s.save()
}

func (s *Store) save() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("marshaling library index: %w", err)
	}
	return atomicfile.WriteFile(s.path, data)
}
