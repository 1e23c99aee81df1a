// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/litfiler/internal/httputil"
	"github.com/pdiddy/litfiler/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// fakeLibrary is an in-memory stand-in for the Zotero API. It records
// write payloads so tests can assert on what was pushed.
type fakeLibrary struct {
	collections []map[string]any // {key, data: {name}}
	itemDOIs    []string

	createdCollections []string
	createdItems       []map[string]any
	createdNotes       []map[string]any
	keySeq             int
}

func (f *fakeLibrary) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Zotero-API-Key") != "zk-test" {
			t.Errorf("missing API key header on %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.URL.Path, "/users/1234/") {
			t.Errorf("unexpected library prefix in %s", r.URL.Path)
		}

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/collections"):
			json.NewEncoder(w).Encode(f.collections)

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/items"):
			items := make([]map[string]any, 0, len(f.itemDOIs))
			for _, doi := range f.itemDOIs {
				items = append(items, map[string]any{"data": map[string]any{"DOI": doi}})
			}
			json.NewEncoder(w).Encode(items)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/collections"):
			var payload []map[string]any
			decodeBody(t, r.Body, &payload)
			name, _ := payload[0]["name"].(string)
			f.createdCollections = append(f.createdCollections, name)
			f.writeSuccess(w)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/items"):
			var payload []map[string]any
			decodeBody(t, r.Body, &payload)
			if _, isNote := payload[0]["parentItem"]; isNote {
				f.createdNotes = append(f.createdNotes, payload[0])
			} else {
				f.createdItems = append(f.createdItems, payload[0])
			}
			f.writeSuccess(w)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	})
}

func (f *fakeLibrary) writeSuccess(w http.ResponseWriter) {
	f.keySeq++
	fmt.Fprintf(w, `{"successful":{"0":{"key":"KEY%d"}}}`, f.keySeq)
}

func decodeBody(t *testing.T, body io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decoding request body: %v", err)
	}
}

func newTestClient(t *testing.T, lib *fakeLibrary) *Client {
	t.Helper()
	srv := httptest.NewServer(lib.handler(t))
	t.Cleanup(srv.Close)

	orig := zoteroAPIBase
	zoteroAPIBase = srv.URL
	t.Cleanup(func() { zoteroAPIBase = orig })

	return NewClient(types.ZoteroConfig{
		Enabled:     true,
		APIKey:      "zk-test",
		UserID:      "1234",
		LibraryType: "user",
	})
}

func TestPushPaperCreatesItemCollectionsAndNote(t *testing.T) {
	lib := &fakeLibrary{}
	client := newTestClient(t, lib)

	rec := &types.MetadataRecord{
		Title:    "Mineral-associated organic matter formation",
		Authors:  []string{"Smith, J.", "Maria Jones"},
		Year:     2021,
		DOI:      "10.1016/j.soilbio.2021.108189",
		Abstract: "We examine MAOM formation pathways.",
		Summary:  "Clay Surfaces Drive MAOM Formation",
		Topics:   []string{"maom", "soil-carbon"},
	}

	if err := client.PushPaper(context.Background(), rec); err != nil {
		t.Fatalf("PushPaper() error: %v", err)
	}

	if got := lib.createdCollections; len(got) != 2 || got[0] != "maom" || got[1] != "soil-carbon" {
		t.Errorf("created collections = %v, want [maom soil-carbon]", got)
	}

	if len(lib.createdItems) != 1 {
		t.Fatalf("created %d items, want 1", len(lib.createdItems))
	}
	item := lib.createdItems[0]
	if item["title"] != rec.Title {
		t.Errorf("item title = %v, want %q", item["title"], rec.Title)
	}
	if item["DOI"] != rec.DOI {
		t.Errorf("item DOI = %v, want %q", item["DOI"], rec.DOI)
	}
	if item["date"] != "2021" {
		t.Errorf("item date = %v, want 2021", item["date"])
	}

	creators, _ := item["creators"].([]any)
	if len(creators) != 2 {
		t.Fatalf("item has %d creators, want 2", len(creators))
	}
	first, _ := creators[0].(map[string]any)
	if first["lastName"] != "Smith" || first["firstName"] != "J." {
		t.Errorf("first creator = %v, want split Smith / J.", first)
	}
	second, _ := creators[1].(map[string]any)
	if second["name"] != "Maria Jones" {
		t.Errorf("second creator = %v, want single-field name", second)
	}

	if len(lib.createdNotes) != 1 {
		t.Fatalf("created %d notes, want 1", len(lib.createdNotes))
	}
	note := lib.createdNotes[0]
	if text, _ := note["note"].(string); !strings.Contains(text, rec.Summary) {
		t.Errorf("note text %q does not carry the summary", text)
	}
	if note["parentItem"] == "" || note["parentItem"] == nil {
		t.Error("note has no parent item")
	}
}

func TestPushPaperSkipsExistingDOI(t *testing.T) {
	// The library lists the DOI with a resolver prefix and mixed case;
	// normalization must still find it.
	lib := &fakeLibrary{itemDOIs: []string{"https://doi.org/10.1016/J.SOILBIO.2021.108189"}}
	client := newTestClient(t, lib)

	rec := &types.MetadataRecord{
		Title:  "Mineral-associated organic matter formation",
		DOI:    "10.1016/j.soilbio.2021.108189",
		Topics: []string{"maom"},
	}

	if err := client.PushPaper(context.Background(), rec); err != nil {
		t.Fatalf("PushPaper() error: %v", err)
	}
	if len(lib.createdItems) != 0 {
		t.Errorf("created %d items for an existing DOI, want 0", len(lib.createdItems))
	}
	if len(lib.createdCollections) != 0 {
		t.Errorf("created %d collections for an existing DOI, want 0", len(lib.createdCollections))
	}
}

func TestPushPaperReusesExistingCollection(t *testing.T) {
	lib := &fakeLibrary{
		collections: []map[string]any{
			{"key": "COLL1", "data": map[string]any{"name": "maom"}},
		},
	}
	client := newTestClient(t, lib)

	rec := &types.MetadataRecord{
		Title:  "Sorption of dissolved organic matter to clay",
		DOI:    "10.1000/xyz",
		Topics: []string{"maom"},
	}

	if err := client.PushPaper(context.Background(), rec); err != nil {
		t.Fatalf("PushPaper() error: %v", err)
	}
	if len(lib.createdCollections) != 0 {
		t.Errorf("created %d collections, want 0 (maom already exists)", len(lib.createdCollections))
	}

	if len(lib.createdItems) != 1 {
		t.Fatalf("created %d items, want 1", len(lib.createdItems))
	}
	colls, _ := lib.createdItems[0]["collections"].([]any)
	if len(colls) != 1 || colls[0] != "COLL1" {
		t.Errorf("item collections = %v, want [COLL1]", colls)
	}
}

func TestPushPaperCachesAcrossCalls(t *testing.T) {
	lib := &fakeLibrary{}
	client := newTestClient(t, lib)

	rec := &types.MetadataRecord{
		Title:  "Particulate organic matter turnover",
		DOI:    "10.1000/abc",
		Topics: []string{"pom"},
	}
	if err := client.PushPaper(context.Background(), rec); err != nil {
		t.Fatalf("first PushPaper() error: %v", err)
	}

	// Same DOI again: the cache learned it from the first push, so the
	// second call is a no-op without re-listing the library.
	if err := client.PushPaper(context.Background(), rec); err != nil {
		t.Fatalf("second PushPaper() error: %v", err)
	}
	if len(lib.createdItems) != 1 {
		t.Errorf("created %d items across two pushes of one DOI, want 1", len(lib.createdItems))
	}
}

func TestLibraryPrefixForGroups(t *testing.T) {
	client := NewClient(types.ZoteroConfig{UserID: "77", LibraryType: "group"})
	if got := client.libraryPrefix(); !strings.HasSuffix(got, "/groups/77") {
		t.Errorf("libraryPrefix() = %q, want /groups/77 suffix", got)
	}
}
