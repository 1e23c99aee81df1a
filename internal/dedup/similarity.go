// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup detects duplicate papers in the library by DOI identity or
// fuzzy title similarity, and merges duplicate records without losing
// higher-confidence field values.
package dedup

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Similarity scores how alike two normalized titles are, in [0, 1].
type Similarity interface {
	Score(a, b string) float64
}

// DiceSimilarity scores titles with the Sorensen-Dice coefficient over
// character bigrams. Tolerant of word reordering and small OCR noise.
type DiceSimilarity struct {
	metric *metrics.SorensenDice
}

// NewDiceSimilarity returns the default title similarity metric.
func NewDiceSimilarity() *DiceSimilarity {
	m := metrics.NewSorensenDice()
	m.CaseSensitive = false
	return &DiceSimilarity{metric: m}
}

// Score computes the similarity of two titles after normalization.
func (s *DiceSimilarity) Score(a, b string) float64 {
	return strutil.Similarity(NormalizeTitle(a), NormalizeTitle(b), s.metric)
}

// NormalizeTitle lowercases a title and strips punctuation so that
// formatting differences between sources do not depress similarity.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
