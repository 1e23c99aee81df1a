// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/litfiler/pkg/types"
)

func testRecord(doi, title string) *types.MetadataRecord {
	return &types.MetadataRecord{
		DOI:     doi,
		Title:   title,
		Authors: []string{"Smith, J."},
		Year:    2023,
		Provenance: map[types.FieldName]types.Provenance{
			types.FieldTitle: {Method: types.MethodLookup, Confidence: 0.95},
		},
		Status:      types.StatusAutoFiled,
		Topics:      []string{"soil-carbon"},
		FilePath:    "/library/by-topic/soil-carbon/paper.pdf",
		ProcessedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.yaml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("new store Len() = %d, want 0", s.Len())
	}

	rec := testRecord("10.1016/j.geoderma.2023.116432", "Mineral-associated organic matter formation")
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Reload from disk.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() reload error = %v", err)
	}
	got := s2.Get(rec.ID())
	if got == nil {
		t.Fatal("record missing after reload")
	}
	if got.Title != rec.Title || got.Year != rec.Year {
		t.Errorf("reloaded record = %+v, want %+v", got, rec)
	}
	if got.FieldConfidence(types.FieldTitle) != 0.95 {
		t.Error("provenance must survive the round trip")
	}
}

func TestStoreFindByDOI(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	rec := testRecord("10.1016/j.geoderma.2023.116432", "Some paper")
	if err := s.Put(rec); err != nil {
		t.Fatal(err)
	}

	if got := s.FindByDOI("https://doi.org/10.1016/J.GEODERMA.2023.116432"); got == nil {
		t.Error("FindByDOI must normalize before comparing")
	}
	if got := s.FindByDOI("10.9999/absent"); got != nil {
		t.Errorf("FindByDOI(absent) = %+v, want nil", got)
	}
	if got := s.FindByDOI(""); got != nil {
		t.Error("empty DOI must never match")
	}
}

func TestStorePutWithoutIdentity(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(&types.MetadataRecord{Title: "No identity"}); err == nil {
		t.Fatal("Put must reject a record with neither DOI nor file hash")
	}
}

func TestStoreCorruptIndexIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("a corrupt index must be an error, not a silent reset")
	}
}

func TestStoreByStatus(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	filed := testRecord("10.1111/a.1", "Filed paper")
	review := testRecord("10.1111/a.2", "Review paper")
	review.Status = types.StatusNeedsReview
	for _, rec := range []*types.MetadataRecord{filed, review} {
		if err := s.Put(rec); err != nil {
			t.Fatal(err)
		}
	}

	got := s.ByStatus(types.StatusNeedsReview)
	if len(got) != 1 || got[0].Title != "Review paper" {
		t.Errorf("ByStatus(needs_review) = %v, want the one review paper", got)
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 content"), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	// Identical content elsewhere hashes the same.
	path2 := filepath.Join(dir, "b.pdf")
	if err := os.WriteFile(path2, []byte("%PDF-1.4 content"), 0o644); err != nil {
		t.Fatal(err)
	}
	h2, err := Fingerprint(path2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("identical content must produce identical fingerprints")
	}

	if _, err := Fingerprint(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("missing file must be an error")
	}
}

func TestCatalogSearchAndStats(t *testing.T) {
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalog() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	spectro := testRecord("10.1111/a.1", "Visible near infrared spectroscopy predicts soil carbon")
	spectro.Summary = "Spectral Models Predict Carbon Stocks"
	spectro.Topics = []string{"soil-spectroscopy"}

	maom := testRecord("10.1111/a.2", "Mineral-associated organic matter formation in temperate soils")
	maom.Topics = []string{"maom", "soil-carbon"}
	maom.Year = 2019

	review := testRecord("10.1111/a.3", "Deep learning for crop yield prediction")
	review.Status = types.StatusNeedsReview
	review.Topics = nil

	for _, rec := range []*types.MetadataRecord{spectro, maom, review} {
		if err := c.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	hits, err := c.Search(ctx, "spectroscopy", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ID != spectro.ID() {
		t.Errorf("Search(spectroscopy) = %v, want the spectroscopy paper", hits)
	}
	if hits[0].Summary != spectro.Summary {
		t.Errorf("hit summary = %q, want %q", hits[0].Summary, spectro.Summary)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalPapers != 3 {
		t.Errorf("TotalPapers = %d, want 3", stats.TotalPapers)
	}
	if stats.ByStatus[types.StatusAutoFiled] != 2 || stats.ByStatus[types.StatusNeedsReview] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}
	if stats.ByTopic["soil-carbon"] != 1 || stats.ByTopic["maom"] != 1 {
		t.Errorf("ByTopic = %v", stats.ByTopic)
	}
	if stats.YearMin != 2019 || stats.YearMax != 2023 {
		t.Errorf("year range = [%d, %d], want [2019, 2023]", stats.YearMin, stats.YearMax)
	}
}

func TestCatalogUpsertReplaces(t *testing.T) {
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	rec := testRecord("10.1111/a.1", "Original title about soil structure")
	if err := c.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Title = "Corrected title about aggregate stability"
	if err := c.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	if hits, _ := c.Search(ctx, "aggregate", 10); len(hits) != 1 {
		t.Errorf("updated title should be searchable, got %v", hits)
	}
	// The FTS delete trigger must have removed the old text.
	if hits, _ := c.Search(ctx, "structure", 10); len(hits) != 0 {
		t.Errorf("stale title should not be searchable, got %v", hits)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalPapers != 1 {
		t.Errorf("TotalPapers = %d, want 1 after upsert", stats.TotalPapers)
	}
}

func TestCatalogRebuild(t *testing.T) {
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Upsert(ctx, testRecord("10.1111/old.1", "Stale catalog entry")); err != nil {
		t.Fatal(err)
	}

	fresh := []*types.MetadataRecord{
		testRecord("10.1111/new.1", "Fresh entry one about nitrogen"),
		testRecord("10.1111/new.2", "Fresh entry two about phosphorus"),
	}
	if err := c.Rebuild(ctx, fresh); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalPapers != 2 {
		t.Errorf("TotalPapers = %d, want 2 after rebuild", stats.TotalPapers)
	}
	if hits, _ := c.Search(ctx, "stale", 10); len(hits) != 0 {
		t.Errorf("rebuilt catalog must not contain stale entries, got %v", hits)
	}
}
