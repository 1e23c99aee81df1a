// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litfiler/internal/atomicfile"
	"github.com/pdiddy/litfiler/pkg/types"
)

// refreshEveryFilings forces an IDF recomputation after this many filings
// even when the corpus has not grown proportionally.
const refreshEveryFilings = 25

// refreshGrowthFraction forces an IDF recomputation once the corpus has
// grown by this fraction since the last refresh.
const refreshGrowthFraction = 0.10

// storeState is the on-disk shape of the profile store. Document
// frequencies and corpus size persist so the IDF discount survives
// restarts without a rebuild.
type storeState struct {
	Profiles map[string]*types.TopicProfile `yaml:"profiles"`

	DocFreq      map[string]int `yaml:"doc_freq"`
	TotalPapers  int            `yaml:"total_papers"`
	FilingsSince int            `yaml:"filings_since_refresh"`
	PapersAtLast int            `yaml:"papers_at_last_refresh"`
}

// Store owns the topic profiles. All mutation goes through RecordFiling
// under a single-writer lock; readers take snapshots.
type Store struct {
	mu    sync.Mutex
	path  string
	state storeState
}

// OpenStore loads the profile store from path, or starts empty when the
// file does not exist yet. A present-but-unreadable file is an error: the
// profiles are authoritative and silently starting over would corrupt
// every future filing decision.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		state: storeState{
			Profiles: make(map[string]*types.TopicProfile),
			DocFreq:  make(map[string]int),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile store %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parsing profile store %s: %w", path, err)
	}
	if s.state.Profiles == nil {
		s.state.Profiles = make(map[string]*types.TopicProfile)
	}
	if s.state.DocFreq == nil {
		s.state.DocFreq = make(map[string]int)
	}
	return s, nil
}

// Snapshot returns deep copies of all profiles, safe to score against
// while filings proceed.
func (s *Store) Snapshot() map[string]*types.TopicProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*types.TopicProfile, len(s.state.Profiles))
	for slug, p := range s.state.Profiles {
		out[slug] = p.Clone()
	}
	return out
}

// Get returns a copy of one profile, or nil when the slug has never had a
// paper filed.
func (s *Store) Get(slug string) *types.TopicProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.state.Profiles[slug]; ok {
		return p.Clone()
	}
	return nil
}

// PaperCount returns the total number of filings recorded.
func (s *Store) PaperCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPapers
}

// RecordFiling updates the profiles for every topic the paper was actually
// filed under and persists the store. Profiles are created lazily on first
// assignment. The incremental update touches only the paper's own terms;
// the corpus-wide IDF discount is recomputed on a cadence, not per insert.
func (s *Store) RecordFiling(slugs []string, rec *types.MetadataRecord) error {
	if len(slugs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := TermCounts(RecordText(rec))

	for term := range counts {
		s.state.DocFreq[term]++
	}
	s.state.TotalPapers++
	s.state.FilingsSince++

	for _, slug := range slugs {
		p, ok := s.state.Profiles[slug]
		if !ok {
			p = &types.TopicProfile{
				Slug:           slug,
				TermCounts:     make(map[string]float64),
				KeywordWeights: make(map[string]float64),
			}
			s.state.Profiles[slug] = p
		}

		for term, n := range counts {
			p.TermCounts[term] += n
			// Keep the signature current between refreshes using the
			// present IDF estimate for the touched terms.
			p.KeywordWeights[term] = p.TermCounts[term] * s.idf(term)
		}

		for _, author := range rec.Authors {
			if a := NormalizeAuthor(author); a != "" && !p.HasAuthor(a) {
				p.AuthorsSeen = append(p.AuthorsSeen, a)
			}
		}
		sort.Strings(p.AuthorsSeen)

		if rec.Year != 0 {
			if p.YearMin == 0 || rec.Year < p.YearMin {
				p.YearMin = rec.Year
			}
			if rec.Year > p.YearMax {
				p.YearMax = rec.Year
			}
		}

		p.PaperCount++
	}

	if s.refreshDue() {
		s.refreshIDF()
	}

	return s.save()
}

// refreshDue applies the cadence: every refreshEveryFilings filings, or
// when the corpus grew by refreshGrowthFraction since the last refresh.
func (s *Store) refreshDue() bool {
	if s.state.FilingsSince >= refreshEveryFilings {
		return true
	}
	if s.state.PapersAtLast == 0 {
		return s.state.TotalPapers > 0
	}
	growth := float64(s.state.TotalPapers-s.state.PapersAtLast) / float64(s.state.PapersAtLast)
	return growth >= refreshGrowthFraction
}

// refreshIDF recomputes every profile's keyword weights from its raw term
// counts and the current corpus document frequencies.
func (s *Store) refreshIDF() {
	for _, p := range s.state.Profiles {
		weights := make(map[string]float64, len(p.TermCounts))
		for term, count := range p.TermCounts {
			weights[term] = count * s.idf(term)
		}
		p.KeywordWeights = weights
	}
	s.state.FilingsSince = 0
	s.state.PapersAtLast = s.state.TotalPapers
}

// idf is a smoothed inverse document frequency. Terms appearing in every
// paper approach zero weight; unseen terms get the maximum discount.
func (s *Store) idf(term string) float64 {
	df := s.state.DocFreq[term]
	return math.Log(1 + float64(1+s.state.TotalPapers)/float64(1+df))
}

// save writes the store atomically so a crash mid-write cannot corrupt it.
func (s *Store) save() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("marshaling profile store: %w", err)
	}
	return atomicfile.WriteFile(s.path, data)
}
