// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pdiddy/litfiler/pkg/types"
)

// fakeTaxonomy is a closed slug set with one disallowed pair.
type fakeTaxonomy struct {
	slugs      map[string]bool
	disallowed [2]string
	maxTopics  int
}

func (f *fakeTaxonomy) Contains(slug string) bool { return f.slugs[slug] }

func (f *fakeTaxonomy) PairingAllowed(a, b string) bool {
	return !(a == f.disallowed[0] && b == f.disallowed[1]) &&
		!(a == f.disallowed[1] && b == f.disallowed[0])
}

func (f *fakeTaxonomy) FormatForPrompt() string { return "- soil-carbon\n- maom\n- pom" }

func (f *fakeTaxonomy) MaxTopics() int { return f.maxTopics }

func testTaxonomy() *fakeTaxonomy {
	return &fakeTaxonomy{
		slugs:      map[string]bool{"soil-carbon": true, "maom": true, "pom": true, "tillage": true},
		disallowed: [2]string{"maom", "pom"},
		maxTopics:  3,
	}
}

func TestEnhance(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantSummary string
		wantTopics  []string
		wantErr     bool
	}{
		{
			name:        "valid reply",
			response:    "SUMMARY: Mineral Association Stabilizes Soil Carbon\nTOPICS: maom | soil-carbon",
			wantSummary: "Mineral Association Stabilizes Soil Carbon",
			wantTopics:  []string{"maom", "soil-carbon"},
		},
		{
			name:     "summary too long",
			response: "SUMMARY: This Paper Shows That Mineral Association Is The Dominant Stabilization Mechanism\nTOPICS: maom",
			wantErr:  true,
		},
		{
			name:     "summary not title case",
			response: "SUMMARY: mineral association stabilizes soil carbon\nTOPICS: maom",
			wantErr:  true,
		},
		{
			name:     "unknown slug invalidates set",
			response: "SUMMARY: Mineral Association Stabilizes Soil Carbon\nTOPICS: maom | pedogenesis",
			wantErr:  true,
		},
		{
			name:     "disallowed pairing",
			response: "SUMMARY: Mineral Association Stabilizes Soil Carbon\nTOPICS: maom | pom",
			wantErr:  true,
		},
		{
			name:     "missing topics line",
			response: "SUMMARY: Mineral Association Stabilizes Soil Carbon",
			wantErr:  true,
		},
		{
			name:        "excess topics capped before validation",
			response:    "SUMMARY: Tillage Reduces Particulate Carbon Stocks\nTOPICS: tillage | pom | soil-carbon | maom",
			wantSummary: "Tillage Reduces Particulate Carbon Stocks",
			wantTopics:  []string{"tillage", "pom", "soil-carbon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Enhancer{
				Backend:  &mockCompleter{response: tt.response},
				Taxonomy: testTaxonomy(),
			}
			rec := &types.MetadataRecord{
				Title:    "Mineral-associated organic matter formation in temperate soils",
				Abstract: "Soil carbon persists via mineral association.",
			}

			err := e.Enhance(context.Background(), rec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidModelOutput) {
					t.Fatalf("Enhance() error = %v, want ErrInvalidModelOutput", err)
				}
				if rec.Summary != "" || rec.SuggestedTopics != nil {
					t.Error("failed enhancement must leave the record untouched")
				}
				return
			}
			if err != nil {
				t.Fatalf("Enhance() error = %v", err)
			}
			if rec.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", rec.Summary, tt.wantSummary)
			}
			if !reflect.DeepEqual(rec.SuggestedTopics, tt.wantTopics) {
				t.Errorf("SuggestedTopics = %v, want %v", rec.SuggestedTopics, tt.wantTopics)
			}
		})
	}
}

func TestEnhanceBackendErrorPropagates(t *testing.T) {
	e := &Enhancer{
		Backend:  &mockCompleter{err: errors.New("api down")},
		Taxonomy: testTaxonomy(),
	}
	rec := &types.MetadataRecord{Title: "Some sufficiently long paper title"}
	if err := e.Enhance(context.Background(), rec); err == nil {
		t.Fatal("expected error, got nil")
	}
	if rec.Summary != "" {
		t.Error("record must be untouched after a backend error")
	}
}
