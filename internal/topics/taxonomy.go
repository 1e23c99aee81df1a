// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// TaxonomyEntry is one allowed topic in the closed taxonomy.
type TaxonomyEntry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// taxonomyFile is the on-disk shape of topics.yaml.
type taxonomyFile struct {
	Version         int             `yaml:"version"`
	MaxTopicsPer    int             `yaml:"max_topics"`
	Topics          []TaxonomyEntry `yaml:"topics"`
	DisallowedPairs [][]string      `yaml:"disallowed_pairs,omitempty"`
}

// Taxonomy is the closed set of topic slugs papers may be filed under.
// New slugs are added by editing the taxonomy file, never by the pipeline.
type Taxonomy struct {
	entries    []TaxonomyEntry
	bySlug     map[string]TaxonomyEntry
	disallowed map[string]map[string]bool
	maxTopics  int
}

// LoadTaxonomy reads and validates a taxonomy file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy %s: %w", path, err)
	}

	var tf taxonomyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}
	if len(tf.Topics) == 0 {
		return nil, fmt.Errorf("taxonomy %s defines no topics", path)
	}

	t := &Taxonomy{
		entries:    tf.Topics,
		bySlug:     make(map[string]TaxonomyEntry, len(tf.Topics)),
		disallowed: make(map[string]map[string]bool),
		maxTopics:  tf.MaxTopicsPer,
	}
	if t.maxTopics <= 0 {
		t.maxTopics = 3
	}

	for _, e := range tf.Topics {
		slug := strings.ToLower(strings.TrimSpace(e.Slug))
		if slug == "" {
			return nil, fmt.Errorf("taxonomy %s: entry %q has no slug", path, e.Name)
		}
		if _, dup := t.bySlug[slug]; dup {
			return nil, fmt.Errorf("taxonomy %s: duplicate slug %q", path, slug)
		}
		t.bySlug[slug] = e
	}

	for _, pair := range tf.DisallowedPairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("taxonomy %s: disallowed pair %v must have exactly two slugs", path, pair)
		}
		a, b := strings.ToLower(pair[0]), strings.ToLower(pair[1])
		for _, s := range []string{a, b} {
			if _, ok := t.bySlug[s]; !ok {
				return nil, fmt.Errorf("taxonomy %s: disallowed pair references unknown slug %q", path, s)
			}
		}
		t.addDisallowed(a, b)
		t.addDisallowed(b, a)
	}

	return t, nil
}

func (t *Taxonomy) addDisallowed(a, b string) {
	if t.disallowed[a] == nil {
		t.disallowed[a] = make(map[string]bool)
	}
	t.disallowed[a][b] = true
}

// Contains reports whether the slug exists in the taxonomy.
func (t *Taxonomy) Contains(slug string) bool {
	_, ok := t.bySlug[strings.ToLower(slug)]
	return ok
}

// Entry returns the taxonomy entry for a slug.
func (t *Taxonomy) Entry(slug string) (TaxonomyEntry, bool) {
	e, ok := t.bySlug[strings.ToLower(slug)]
	return e, ok
}

// Slugs returns all slugs in sorted order.
func (t *Taxonomy) Slugs() []string {
	slugs := make([]string, 0, len(t.bySlug))
	for s := range t.bySlug {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// PairingAllowed reports whether two slugs may be assigned to the same
// paper.
func (t *Taxonomy) PairingAllowed(a, b string) bool {
	return !t.disallowed[strings.ToLower(a)][strings.ToLower(b)]
}

// MaxTopics is the per-paper topic cap.
func (t *Taxonomy) MaxTopics() int { return t.maxTopics }

// FormatForPrompt renders the taxonomy as a slug-per-line list with
// descriptions, suitable for inclusion in a model prompt.
func (t *Taxonomy) FormatForPrompt() string {
	var b strings.Builder
	for _, e := range t.entries {
		b.WriteString("- ")
		b.WriteString(strings.ToLower(e.Slug))
		if e.Description != "" {
			b.WriteString(": ")
			b.WriteString(e.Description)
		} else if e.Name != "" {
			b.WriteString(": ")
			b.WriteString(e.Name)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FilterSelection drops slugs from a ranked selection that would violate
// pairing rules with an earlier, higher-ranked slug.
func (t *Taxonomy) FilterSelection(slugs []string) []string {
	var out []string
	for _, s := range slugs {
		ok := true
		for _, kept := range out {
			if !t.PairingAllowed(kept, s) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, s)
		}
	}
	return out
}
