// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero mirrors filed papers into a Zotero library: one
// journal-article item per paper, one collection per topic, and the
// finding summary as a child note. Sync is best-effort; the library on
// disk never depends on it.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/pdiddy/litfiler/internal/httputil"
	"github.com/pdiddy/litfiler/pkg/types"
)

// zoteroAPIBase is the Zotero API endpoint. Package-level var for test
// substitution.
var zoteroAPIBase = "https://api.zotero.org"

// Client talks to one Zotero user or group library.
type Client struct {
	Cfg    types.ZoteroConfig
	Client *http.Client

	mu          sync.Mutex
	collections map[string]string // topic slug -> collection key
	dois        map[string]bool   // normalized DOI -> present
	cachesBuilt bool
}

// NewClient builds a client for the configured library.
func NewClient(cfg types.ZoteroConfig) *Client {
	return &Client{Cfg: cfg}
}

func (c *Client) libraryPrefix() string {
	kind := "users"
	if c.Cfg.LibraryType == "group" {
		kind = "groups"
	}
	return fmt.Sprintf("%s/%s/%s", zoteroAPIBase, kind, c.Cfg.UserID)
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.Cfg.APIKey)
	req.Header.Set("Zotero-API-Version", "3")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	return httputil.DoWithRetry(ctx, client, req, 3)
}

// PushPaper creates the paper in the Zotero library unless an item with
// the same DOI already exists. The paper's topics become collections,
// created on demand; the summary becomes a child note.
func (c *Client) PushPaper(ctx context.Context, rec *types.MetadataRecord) error {
	if err := c.buildCaches(ctx); err != nil {
		return err
	}

	doi := types.NormalizeDOI(rec.DOI)
	c.mu.Lock()
	exists := doi != "" && c.dois[doi]
	c.mu.Unlock()
	if exists {
		return nil
	}

	var collectionKeys []string
	for _, slug := range rec.Topics {
		key, err := c.ensureCollection(ctx, slug)
		if err != nil {
			return err
		}
		collectionKeys = append(collectionKeys, key)
	}

	itemKey, err := c.createItem(ctx, rec, collectionKeys)
	if err != nil {
		return err
	}

	if doi != "" {
		c.mu.Lock()
		c.dois[doi] = true
		c.mu.Unlock()
	}

	if rec.Summary != "" {
		if err := c.attachNote(ctx, itemKey, rec.Summary); err != nil {
			return err
		}
	}
	return nil
}

// buildCaches loads the collection and DOI caches once per process so a
// batch of filings does not re-list the library per paper.
func (c *Client) buildCaches(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachesBuilt {
		return nil
	}

	c.collections = make(map[string]string)
	c.dois = make(map[string]bool)

	resp, err := c.do(ctx, http.MethodGet, c.libraryPrefix()+"/collections?limit=100", nil)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listing collections: HTTP %d", resp.StatusCode)
	}

	var colls []struct {
		Key  string `json:"key"`
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&colls); err != nil {
		return fmt.Errorf("decoding collections: %w", err)
	}
	for _, coll := range colls {
		c.collections[coll.Data.Name] = coll.Key
	}

	start := 0
	for {
		url := fmt.Sprintf("%s/items?itemType=journalArticle&limit=100&start=%d", c.libraryPrefix(), start)
		resp, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		var items []struct {
			Data struct {
				DOI string `json:"DOI"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&items)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding items: %w", err)
		}
		for _, item := range items {
			if doi := types.NormalizeDOI(item.Data.DOI); doi != "" {
				c.dois[doi] = true
			}
		}
		if len(items) < 100 {
			break
		}
		start += 100
	}

	c.cachesBuilt = true
	return nil
}

// ensureCollection returns the key of the collection for a topic,
// creating it when absent.
func (c *Client) ensureCollection(ctx context.Context, slug string) (string, error) {
	c.mu.Lock()
	if key, ok := c.collections[slug]; ok {
		c.mu.Unlock()
		return key, nil
	}
	c.mu.Unlock()

	payload := []map[string]any{{"name": slug}}
	resp, err := c.do(ctx, http.MethodPost, c.libraryPrefix()+"/collections", payload)
	if err != nil {
		return "", fmt.Errorf("creating collection %s: %w", slug, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("creating collection %s: HTTP %d", slug, resp.StatusCode)
	}

	key, err := successKey(resp.Body)
	if err != nil {
		return "", fmt.Errorf("creating collection %s: %w", slug, err)
	}

	c.mu.Lock()
	c.collections[slug] = key
	c.mu.Unlock()
	return key, nil
}

func (c *Client) createItem(ctx context.Context, rec *types.MetadataRecord, collections []string) (string, error) {
	creators := make([]map[string]string, 0, len(rec.Authors))
	for _, name := range rec.Authors {
		creator := map[string]string{"creatorType": "author"}
		if i := strings.Index(name, ","); i >= 0 {
			creator["lastName"] = strings.TrimSpace(name[:i])
			creator["firstName"] = strings.TrimSpace(name[i+1:])
		} else {
			creator["name"] = name
		}
		creators = append(creators, creator)
	}

	item := map[string]any{
		"itemType":     "journalArticle",
		"title":        rec.Title,
		"creators":     creators,
		"DOI":          rec.DOI,
		"abstractNote": rec.Abstract,
		"collections":  collections,
		"tags":         topicTags(rec.Topics),
	}
	if rec.Year != 0 {
		item["date"] = strconv.Itoa(rec.Year)
	}

	resp, err := c.do(ctx, http.MethodPost, c.libraryPrefix()+"/items", []map[string]any{item})
	if err != nil {
		return "", fmt.Errorf("creating item: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("creating item: HTTP %d", resp.StatusCode)
	}
	return successKey(resp.Body)
}

func (c *Client) attachNote(ctx context.Context, parentKey, summary string) error {
	note := map[string]any{
		"itemType":   "note",
		"parentItem": parentKey,
		"note":       "<p>" + summary + "</p>",
	}
	resp, err := c.do(ctx, http.MethodPost, c.libraryPrefix()+"/items", []map[string]any{note})
	if err != nil {
		return fmt.Errorf("attaching note: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("attaching note: HTTP %d", resp.StatusCode)
	}
	return nil
}

func topicTags(topics []string) []map[string]string {
	tags := make([]map[string]string, 0, len(topics))
	for _, t := range topics {
		tags = append(tags, map[string]string{"tag": t})
	}
	return tags
}

// successKey pulls the created key out of a Zotero write response:
// {"successful": {"0": {"key": "ABC123", ...}}, ...}.
func successKey(body io.Reader) (string, error) {
	var parsed struct {
		Successful map[string]struct {
			Key string `json:"key"`
		} `json:"successful"`
		Success map[string]string `json:"success"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding write response: %w", err)
	}
	for _, item := range parsed.Successful {
		return item.Key, nil
	}
	for _, key := range parsed.Success {
		return key, nil
	}
	return "", fmt.Errorf("write response reported no successful items")
}
