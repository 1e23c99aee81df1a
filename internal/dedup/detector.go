// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"strings"

	"github.com/pdiddy/litfiler/pkg/types"
)

// MatchReason says which rule identified the duplicate.
type MatchReason string

const (
	ReasonDOI   MatchReason = "doi"
	ReasonTitle MatchReason = "title"
)

// authorOverlapBonus is added to the title similarity when the candidate
// and existing records share at least one author. Bounded so that shared
// authorship alone can never push dissimilar titles over the threshold.
const authorOverlapBonus = 0.05

// Match describes a detected duplicate.
type Match struct {
	// Existing is the record already in the library.
	Existing *types.MetadataRecord

	// Confidence is 1.0 for DOI identity, otherwise the bonus-adjusted
	// title similarity.
	Confidence float64

	Reason MatchReason
}

// Detector finds duplicates of a candidate record among existing library
// records.
type Detector struct {
	// Sim scores title similarity. Defaults to Sorensen-Dice.
	Sim Similarity

	// Threshold is the minimum adjusted similarity for a title match
	// (default 0.90).
	Threshold float64
}

// NewDetector builds a Detector from config.
func NewDetector(cfg types.DedupConfig) *Detector {
	return &Detector{
		Sim:       NewDiceSimilarity(),
		Threshold: cfg.SimilarityThreshold,
	}
}

// FindDuplicate returns the best duplicate match for the candidate, or nil
// when no existing record qualifies. DOI identity is checked first and is
// conclusive; title similarity is a fallback for records without DOIs or
// with unregistered preprint DOIs.
func (d *Detector) FindDuplicate(candidate *types.MetadataRecord, existing []*types.MetadataRecord) *Match {
	if doi := types.NormalizeDOI(candidate.DOI); doi != "" {
		for _, rec := range existing {
			if rec != candidate && types.NormalizeDOI(rec.DOI) == doi {
				return &Match{Existing: rec, Confidence: 1.0, Reason: ReasonDOI}
			}
		}
	}

	if candidate.Title == "" {
		return nil
	}

	sim := d.Sim
	if sim == nil {
		sim = NewDiceSimilarity()
	}
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = 0.90
	}

	var best *Match
	for _, rec := range existing {
		if rec == candidate || rec.Title == "" {
			continue
		}
		score := sim.Score(candidate.Title, rec.Title)
		if score >= threshold-authorOverlapBonus && sharesAuthor(candidate, rec) {
			score += authorOverlapBonus
		}
		if score > 1.0 {
			score = 1.0
		}
		if score < threshold {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Match{Existing: rec, Confidence: score, Reason: ReasonTitle}
		}
	}
	return best
}

// sharesAuthor reports whether the records share at least one normalized
// author family name.
func sharesAuthor(a, b *types.MetadataRecord) bool {
	if len(a.Authors) == 0 || len(b.Authors) == 0 {
		return false
	}
	families := make(map[string]bool, len(a.Authors))
	for _, name := range a.Authors {
		if f := familyName(name); f != "" {
			families[f] = true
		}
	}
	for _, name := range b.Authors {
		if families[familyName(name)] {
			return true
		}
	}
	return false
}

// familyName extracts the family name from "Family, I." or "Given Family"
// forms, normalized for comparison.
func familyName(name string) string {
	name = NormalizeTitle(name)
	if name == "" {
		return ""
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	// "family i" after normalization of "Family, I."; initials are single
	// letters, family names are not.
	if len(fields[len(fields)-1]) > 1 {
		return fields[len(fields)-1]
	}
	return fields[0]
}
