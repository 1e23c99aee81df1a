// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litfiler/pkg/types"
)

// Catalog is the SQLite search catalog derived from the library index.
// Losing it costs nothing but a rebuild; it is never the source of truth.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the catalog database, creating the schema
// as needed.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			doi TEXT,
			title TEXT,
			authors TEXT,
			year INTEGER,
			abstract TEXT,
			summary TEXT,
			topics TEXT,
			status TEXT,
			match_score REAL,
			file_path TEXT,
			processed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := c.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, summary, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract, summary) VALUES (new.rowid, new.title, new.abstract, new.summary);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, summary) VALUES('delete', old.rowid, old.title, old.abstract, old.summary);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, summary) VALUES('delete', old.rowid, old.title, old.abstract, old.summary);
				INSERT INTO papers_fts(rowid, title, abstract, summary) VALUES (new.rowid, new.title, new.abstract, new.summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := c.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Upsert writes one record into the catalog.
func (c *Catalog) Upsert(ctx context.Context, rec *types.MetadataRecord) error {
	authorsJSON, _ := json.Marshal(rec.Authors)
	processedAt := ""
	if !rec.ProcessedAt.IsZero() {
		processedAt = rec.ProcessedAt.UTC().Format(time.RFC3339)
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO papers (id, doi, title, authors, year, abstract, summary, topics, status, match_score, file_path, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			doi=excluded.doi, title=excluded.title, authors=excluded.authors,
			year=excluded.year, abstract=excluded.abstract, summary=excluded.summary,
			topics=excluded.topics, status=excluded.status, match_score=excluded.match_score,
			file_path=excluded.file_path, processed_at=excluded.processed_at`,
		rec.ID(), rec.DOI, rec.Title, string(authorsJSON), rec.Year,
		rec.Abstract, rec.Summary, strings.Join(rec.Topics, ","),
		string(rec.Status), rec.MatchScore, rec.FilePath, processedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", rec.ID(), err)
	}
	return nil
}

// Rebuild replaces the catalog contents with the given records. The
// catalog is derived data, so a failure mid-rebuild is repaired by
// rebuilding again.
func (c *Catalog) Rebuild(ctx context.Context, records []*types.MetadataRecord) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM papers`); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	for _, rec := range records {
		if err := c.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// SearchHit is one full-text search result.
type SearchHit struct {
	ID      string
	DOI     string
	Title   string
	Authors []string
	Year    int
	Summary string
	Topics  []string
	Status  types.FilingStatus
}

// Search runs an FTS5 match over title, abstract, and summary, ranked by
// relevance.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT p.id, p.doi, p.title, p.authors, p.year, p.summary, p.topics, p.status
		 FROM papers_fts f
		 JOIN papers p ON p.rowid = f.rowid
		 WHERE papers_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var authorsJSON, topicsCSV, status string
		if err := rows.Scan(&h.ID, &h.DOI, &h.Title, &authorsJSON, &h.Year, &h.Summary, &topicsCSV, &status); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		json.Unmarshal([]byte(authorsJSON), &h.Authors)
		if topicsCSV != "" {
			h.Topics = strings.Split(topicsCSV, ",")
		}
		h.Status = types.FilingStatus(status)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Stats summarizes the catalog for the stats command.
type Stats struct {
	TotalPapers int
	ByStatus    map[types.FilingStatus]int
	ByTopic     map[string]int
	YearMin     int
	YearMax     int
}

// Stats aggregates paper counts by status and topic.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByStatus: make(map[types.FilingStatus]int),
		ByTopic:  make(map[string]int),
	}

	rows, err := c.db.QueryContext(ctx, `SELECT status, topics, year FROM papers`)
	if err != nil {
		return stats, fmt.Errorf("reading catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, topicsCSV string
		var year int
		if err := rows.Scan(&status, &topicsCSV, &year); err != nil {
			return stats, fmt.Errorf("scanning stats row: %w", err)
		}
		stats.TotalPapers++
		stats.ByStatus[types.FilingStatus(status)]++
		if topicsCSV != "" {
			for _, topic := range strings.Split(topicsCSV, ",") {
				stats.ByTopic[topic]++
			}
		}
		if year != 0 {
			if stats.YearMin == 0 || year < stats.YearMin {
				stats.YearMin = year
			}
			if year > stats.YearMax {
				stats.YearMax = year
			}
		}
	}
	return stats, rows.Err()
}
