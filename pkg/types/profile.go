// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TopicProfile is the learned signature of one taxonomy topic, built from
// every paper ever filed under it.
type TopicProfile struct {
	// Slug is the canonical topic id. Immutable.
	Slug string `json:"slug" yaml:"slug"`

	// TermCounts accumulates per-paper term-frequency contributions.
	// Raw evidence; the matcher consumes KeywordWeights.
	TermCounts map[string]float64 `json:"term_counts" yaml:"term_counts"`

	// KeywordWeights is the TF-IDF style signature derived from
	// TermCounts and the corpus-wide document frequencies. Refreshed
	// periodically, not necessarily on every insert.
	KeywordWeights map[string]float64 `json:"keyword_weights" yaml:"keyword_weights"`

	// AuthorsSeen holds normalized author names observed on filed papers.
	AuthorsSeen []string `json:"authors_seen" yaml:"authors_seen"`

	// YearMin and YearMax bound the observed publication years. Zero
	// values mean no year has been observed yet.
	YearMin int `json:"year_min" yaml:"year_min"`
	YearMax int `json:"year_max" yaml:"year_max"`

	// PaperCount only ever increases.
	PaperCount int `json:"paper_count" yaml:"paper_count"`
}

// Established reports whether the topic has accumulated enough filed papers
// to be eligible for automatic filing.
func (p *TopicProfile) Established(minPapers int) bool {
	return p.PaperCount >= minPapers
}

// HasAuthor reports whether the normalized name appears in AuthorsSeen.
func (p *TopicProfile) HasAuthor(name string) bool {
	for _, a := range p.AuthorsSeen {
		if a == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used to take consistent snapshots for scoring.
func (p *TopicProfile) Clone() *TopicProfile {
	c := &TopicProfile{
		Slug:           p.Slug,
		TermCounts:     make(map[string]float64, len(p.TermCounts)),
		KeywordWeights: make(map[string]float64, len(p.KeywordWeights)),
		AuthorsSeen:    append([]string(nil), p.AuthorsSeen...),
		YearMin:        p.YearMin,
		YearMax:        p.YearMax,
		PaperCount:     p.PaperCount,
	}
	for k, v := range p.TermCounts {
		c.TermCounts[k] = v
	}
	for k, v := range p.KeywordWeights {
		c.KeywordWeights[k] = v
	}
	return c
}
