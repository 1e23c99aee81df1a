// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"math"
	"sort"

	"github.com/pdiddy/litfiler/pkg/types"
)

// yearDecayWindow is how far outside a profile's year range a candidate
// year can fall and still earn a partial year bonus.
const yearDecayWindow = 10

// Matcher scores candidate records against topic profiles and produces
// filing decisions.
type Matcher struct {
	Cfg      types.MatchConfig
	Taxonomy *Taxonomy
}

// Match scores the candidate against every profile in the snapshot and
// returns the filing decision. The snapshot is not mutated; profiles are
// updated only after the paper is actually filed.
func (m *Matcher) Match(rec *types.MetadataRecord, profiles map[string]*types.TopicProfile) types.FilingDecision {
	scores := m.Score(rec, profiles)

	if len(scores) == 0 || scores[0].Score < m.Cfg.PlausibleFloor {
		return types.FilingDecision{Status: types.StatusNeedsReviewNewTopic, Scores: scores}
	}

	top := scores[0]
	established := profiles[top.Slug].Established(m.Cfg.MinPapersForTopic)

	if top.Score < m.Cfg.ConfidenceThreshold || !established {
		// Carry the best suggestion for the reviewer, including the
		// enhancement pass's proposals when the matcher itself is unsure.
		return types.FilingDecision{
			Status: types.StatusNeedsReview,
			Topics: []string{top.Slug},
			Scores: scores,
		}
	}

	return types.FilingDecision{
		Status: types.StatusAutoFiled,
		Topics: m.selectTopics(scores),
		Scores: scores,
	}
}

// Score computes the adjusted score for every profile, highest first.
func (m *Matcher) Score(rec *types.MetadataRecord, profiles map[string]*types.TopicProfile) []types.TopicScore {
	candidate := TermCounts(RecordText(rec))
	if len(candidate) == 0 {
		return nil
	}

	scores := make([]types.TopicScore, 0, len(profiles))
	for slug, p := range profiles {
		base := cosine(candidate, p.KeywordWeights)
		adjusted := base + m.bonuses(rec, p)
		if adjusted > 1 {
			adjusted = 1
		}
		scores = append(scores, types.TopicScore{Slug: slug, Score: adjusted})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Slug < scores[j].Slug
	})
	return scores
}

// bonuses computes the bounded author and year adjustments. They break
// ties among textually plausible candidates and can never substitute for
// textual relevance.
func (m *Matcher) bonuses(rec *types.MetadataRecord, p *types.TopicProfile) float64 {
	var bonus float64

	for _, author := range rec.Authors {
		if p.HasAuthor(NormalizeAuthor(author)) {
			bonus += m.Cfg.AuthorBonus
			break
		}
	}

	if rec.Year != 0 && p.YearMin != 0 {
		switch {
		case rec.Year >= p.YearMin && rec.Year <= p.YearMax:
			bonus += m.Cfg.YearBonus
		default:
			dist := p.YearMin - rec.Year
			if rec.Year > p.YearMax {
				dist = rec.Year - p.YearMax
			}
			if dist < yearDecayWindow {
				bonus += m.Cfg.YearBonus * (1 - float64(dist)/yearDecayWindow)
			}
		}
	}

	return bonus
}

// selectTopics applies the 1-vs-2-topic policy on an auto-file: default to
// the top topic alone, add a second or third only when its score is within
// the co-equal margin of the top and itself above the auto-file threshold.
// Pairing rules still apply; the cap is three.
func (m *Matcher) selectTopics(scores []types.TopicScore) []string {
	selected := []string{scores[0].Slug}
	for _, s := range scores[1:] {
		if len(selected) >= 3 {
			break
		}
		if s.Score < m.Cfg.ConfidenceThreshold {
			break
		}
		if scores[0].Score-s.Score > m.Cfg.CoEqualMargin {
			break
		}
		selected = append(selected, s.Slug)
	}
	if m.Taxonomy != nil {
		selected = m.Taxonomy.FilterSelection(selected)
	}
	return selected
}

// cosine computes the cosine similarity between a raw term-frequency
// vector and a weight vector. Zero when either side is empty.
func cosine(a map[string]float64, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for t, va := range a {
		normA += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
