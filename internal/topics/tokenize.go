// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topics maintains learned topic profiles, matches candidate
// papers against them, and enforces the closed topic taxonomy.
package topics

import (
	"regexp"
	"strings"

	"github.com/pdiddy/litfiler/pkg/types"
)

// stopWords are filtered before term counting. Generic academic filler
// would otherwise dominate every profile.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"as": true, "is": true, "was": true, "are": true, "were": true,
	"been": true, "be": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true,
	"this": true, "that": true, "these": true, "those": true,
	"we": true, "our": true, "using": true, "used": true,
	"between": true, "under": true, "based": true, "study": true,
	"results": true, "effects": true, "paper": true,
}

var wordRe = regexp.MustCompile(`[\w-]+`)

// Tokenize lowercases text and returns the significant terms: words of
// more than three characters that are not stop words. Hyphenated terms
// stay intact.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	var terms []string
	for _, w := range words {
		w = strings.Trim(w, "-_")
		if len(w) > 3 && !stopWords[w] {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCounts builds a term-frequency map over the tokenized text.
func TermCounts(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range Tokenize(text) {
		counts[t]++
	}
	return counts
}

// RecordText concatenates the textual evidence used for profile building
// and matching: title, abstract, and extracted keywords, identically on
// both sides so the vectors are comparable.
func RecordText(rec *types.MetadataRecord) string {
	parts := []string{rec.Title, rec.Abstract}
	if len(rec.Keywords) > 0 {
		parts = append(parts, strings.Join(rec.Keywords, " "))
	}
	return strings.Join(parts, " ")
}

// NormalizeAuthor canonicalizes an author name for set membership: it
// lowercases and keeps only the family name so that "Smith, J." and
// "Jane Smith" collide.
func NormalizeAuthor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	last := strings.Trim(fields[len(fields)-1], ".")
	if len(last) > 1 {
		return last
	}
	return fields[0]
}
