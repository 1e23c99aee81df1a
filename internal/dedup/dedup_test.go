// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/pdiddy/litfiler/pkg/types"
)

func rec(doi, title string, authors ...string) *types.MetadataRecord {
	return &types.MetadataRecord{
		DOI:        doi,
		Title:      title,
		Authors:    authors,
		Provenance: map[types.FieldName]types.Provenance{},
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Soil Carbon: A Review", "soil carbon a review"},
		{"  Mineral-associated   organic matter!  ", "mineral associated organic matter"},
		{"", ""},
		{"已有 Unicode Text", "已有 unicode text"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindDuplicateByDOI(t *testing.T) {
	existing := []*types.MetadataRecord{
		rec("10.1016/j.geoderma.2023.116432", "Mineral-associated organic matter formation"),
		rec("10.1111/ejss.13229", "Some other paper entirely"),
	}

	tests := []struct {
		name      string
		candidate *types.MetadataRecord
		wantMatch bool
	}{
		{
			name:      "exact doi",
			candidate: rec("10.1016/j.geoderma.2023.116432", "Completely different title"),
			wantMatch: true,
		},
		{
			name:      "doi with resolver prefix and different case",
			candidate: rec("https://doi.org/10.1016/J.GEODERMA.2023.116432", "Different title"),
			wantMatch: true,
		},
		{
			name:      "unknown doi and dissimilar title",
			candidate: rec("10.9999/unknown.2024.0001", "An unrelated manuscript about rivers"),
			wantMatch: false,
		},
	}

	d := NewDetector(types.DedupConfig{SimilarityThreshold: 0.90})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := d.FindDuplicate(tt.candidate, existing)
			if tt.wantMatch {
				if m == nil {
					t.Fatal("expected a match, got nil")
				}
				if m.Reason != ReasonDOI || m.Confidence != 1.0 {
					t.Errorf("match = %+v, want doi/1.0", m)
				}
				return
			}
			if m != nil {
				t.Fatalf("expected no match, got %+v", m)
			}
		})
	}
}

func TestFindDuplicateByTitle(t *testing.T) {
	existing := []*types.MetadataRecord{
		rec("", "Mineral-associated organic matter formation in temperate soils", "Smith, J."),
	}
	d := NewDetector(types.DedupConfig{SimilarityThreshold: 0.90})

	t.Run("near-identical title", func(t *testing.T) {
		cand := rec("", "Mineral-Associated Organic Matter Formation in Temperate Soils.")
		m := d.FindDuplicate(cand, existing)
		if m == nil {
			t.Fatal("expected a title match")
		}
		if m.Reason != ReasonTitle {
			t.Errorf("Reason = %q, want title", m.Reason)
		}
		if m.Confidence < 0.90 {
			t.Errorf("Confidence = %v, want >= 0.90", m.Confidence)
		}
	})

	t.Run("shared author lifts borderline similarity", func(t *testing.T) {
		// Subtitle variation drops raw similarity just below threshold.
		cand := rec("", "Mineral-associated organic matter formation in temperate soil profiles", "Smith, J.", "Jones, R.")
		m := d.FindDuplicate(cand, existing)
		if m == nil {
			t.Fatal("expected a match with the author bonus applied")
		}
	})

	t.Run("different paper", func(t *testing.T) {
		cand := rec("", "Deep learning for crop yield prediction from satellite imagery")
		if m := d.FindDuplicate(cand, existing); m != nil {
			t.Fatalf("expected no match, got %+v", m)
		}
	})

	t.Run("untitled candidate never matches by title", func(t *testing.T) {
		if m := d.FindDuplicate(rec("", ""), existing); m != nil {
			t.Fatalf("expected no match, got %+v", m)
		}
	})
}

func TestFindDuplicateIdempotent(t *testing.T) {
	a := rec("10.1016/j.geoderma.2023.116432", "Mineral-associated organic matter formation")
	if m := (&Detector{}).FindDuplicate(a, []*types.MetadataRecord{a}); m != nil {
		t.Fatalf("a record must not match itself, got %+v", m)
	}
}

func TestMergePrefersHigherConfidence(t *testing.T) {
	existing := rec("", "Properties title slightly wrong here", "Smith J")
	existing.Provenance[types.FieldTitle] = types.Provenance{Method: types.MethodPDFProps, Confidence: 0.70}
	existing.Provenance[types.FieldAuthors] = types.Provenance{Method: types.MethodPDFProps, Confidence: 0.70}
	existing.Year = 2023
	existing.Provenance[types.FieldYear] = types.Provenance{Method: types.MethodLookup, Confidence: 0.95}
	existing.Topics = []string{"soil-carbon"}
	existing.Status = types.StatusAutoFiled

	incoming := rec("10.1016/j.geoderma.2023.116432", "Mineral-associated organic matter formation", "Smith, J.")
	incoming.Provenance[types.FieldTitle] = types.Provenance{Method: types.MethodLookup, Confidence: 0.95}
	incoming.Provenance[types.FieldAuthors] = types.Provenance{Method: types.MethodLLM, Confidence: 0.80}
	incoming.Year = 2022
	incoming.Provenance[types.FieldYear] = types.Provenance{Method: types.MethodLLM, Confidence: 0.80}

	Merge(existing, incoming)

	if existing.Title != incoming.Title {
		t.Errorf("Title = %q, want the higher-confidence incoming title", existing.Title)
	}
	if got := existing.FieldConfidence(types.FieldAuthors); got != 0.80 {
		t.Errorf("authors confidence = %v, want 0.80", got)
	}
	// Year must not regress from 0.95 to 0.80.
	if existing.Year != 2023 {
		t.Errorf("Year = %d, want 2023 kept", existing.Year)
	}
	if got := existing.FieldConfidence(types.FieldYear); got != 0.95 {
		t.Errorf("year confidence = %v, want 0.95 kept", got)
	}
	if existing.DOI != "10.1016/j.geoderma.2023.116432" {
		t.Errorf("DOI = %q, want filled from incoming", existing.DOI)
	}
	// Filing state stays with the existing record.
	if existing.Status != types.StatusAutoFiled || len(existing.Topics) != 1 {
		t.Error("merge must not disturb filing state")
	}
}

func TestMergeNeverLowersAnyConfidence(t *testing.T) {
	existing := rec("", "A fully resolved record title", "Smith, J.")
	existing.Year = 2021
	existing.Abstract = "Existing abstract."
	for _, f := range types.PrimaryFields {
		existing.Provenance[f] = types.Provenance{Method: types.MethodLookup, Confidence: 0.95}
	}

	incoming := rec("", "A fully resolved record title", "Jones, R.")
	incoming.Year = 2019
	incoming.Abstract = "Worse abstract."
	for _, f := range types.PrimaryFields {
		incoming.Provenance[f] = types.Provenance{Method: types.MethodPDFProps, Confidence: 0.70}
	}

	Merge(existing, incoming)

	for _, f := range types.PrimaryFields {
		if got := existing.FieldConfidence(f); got != 0.95 {
			t.Errorf("field %s confidence = %v, want 0.95", f, got)
		}
	}
	if existing.Year != 2021 || existing.Abstract != "Existing abstract." {
		t.Error("lower-confidence values must not replace existing ones")
	}
}
