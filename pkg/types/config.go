// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litfiler/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LookupConfig holds settings for the bibliographic lookup service.
type LookupConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email joins the CrossRef polite pool when set.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// MaxRetries is the retry budget for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// LLMConfig holds settings for the LLM text-completion service.
type LLMConfig struct {
	// Model is the model identifier (e.g. "claude-haiku-4-5-20251001").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxChars bounds the leading-page text submitted for parsing
	// (default 16000, roughly 4000 tokens).
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// ExtractionConfig holds settings for the metadata extraction stage.
type ExtractionConfig struct {
	Lookup LookupConfig `json:"lookup" yaml:"lookup"`
	LLM    LLMConfig    `json:"llm" yaml:"llm"`

	// MaxPages is the number of leading pages scanned for text and DOI
	// patterns (default 3).
	MaxPages int `json:"max_pages" yaml:"max_pages"`
}

// DuplicateAction selects how a detected duplicate is handled.
type DuplicateAction string

const (
	DuplicateMerge  DuplicateAction = "merge"
	DuplicateSkip   DuplicateAction = "skip"
	DuplicatePrompt DuplicateAction = "prompt"
)

// DedupConfig holds settings for the duplicate detector.
type DedupConfig struct {
	// Action is applied when a duplicate is found (default merge).
	Action DuplicateAction `json:"action" yaml:"action"`

	// SimilarityThreshold triggers fuzzy-title duplicate status (default 0.90).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// MatchConfig holds settings for the topic matcher.
type MatchConfig struct {
	// ConfidenceThreshold gates auto-filing (default 0.85).
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// MinPapersForTopic gates topic establishment (default 3).
	MinPapersForTopic int `json:"min_papers_for_topic" yaml:"min_papers_for_topic"`

	// AuthorBonus is the bounded score bonus for a known author (default 0.10).
	AuthorBonus float64 `json:"author_bonus" yaml:"author_bonus"`

	// YearBonus is the bounded score bonus for a year within or near the
	// profile's range (default 0.05).
	YearBonus float64 `json:"year_bonus" yaml:"year_bonus"`

	// CoEqualMargin is the maximum gap below the top score within which a
	// second or third topic may be selected (default 0.05).
	CoEqualMargin float64 `json:"co_equal_margin" yaml:"co_equal_margin"`

	// PlausibleFloor is the minimum score for a topic to be carried as a
	// review suggestion (default 0.30).
	PlausibleFloor float64 `json:"plausible_floor" yaml:"plausible_floor"`
}

// LibraryConfig holds the filesystem layout and holding-area policy.
type LibraryConfig struct {
	// InboxDir is where new PDFs arrive.
	InboxDir string `json:"inbox_dir" yaml:"inbox_dir"`

	// LibraryDir contains by-topic/, recent/, unknowables/, corrupted/.
	LibraryDir string `json:"library_dir" yaml:"library_dir"`

	// DataDir contains the index, profiles, catalog, and log files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// RecentRetentionDays is the holding-area retention window (default 3).
	RecentRetentionDays int `json:"recent_retention_days" yaml:"recent_retention_days"`

	// AlwaysCopyToRecent additionally copies auto-filed papers into recent/.
	AlwaysCopyToRecent bool `json:"always_copy_to_recent" yaml:"always_copy_to_recent"`

	// MaxFilenameLength bounds generated filenames (default 200).
	MaxFilenameLength int `json:"max_filename_length" yaml:"max_filename_length"`
}

// ZoteroConfig holds settings for the optional reference-manager sync.
type ZoteroConfig struct {
	HTTPConfig `yaml:",inline"`

	Enabled     bool   `json:"enabled" yaml:"enabled"`
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	UserID      string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	LibraryType string `json:"library_type" yaml:"library_type"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Dedup      DedupConfig      `json:"dedup" yaml:"dedup"`
	Match      MatchConfig      `json:"match" yaml:"match"`
	Library    LibraryConfig    `json:"library" yaml:"library"`
	Zotero     ZoteroConfig     `json:"zotero" yaml:"zotero"`

	// TaxonomyPath locates the closed taxonomy file (default topics.yaml).
	TaxonomyPath string `json:"taxonomy_path" yaml:"taxonomy_path"`
}

// WithDefaults fills zero-valued tunables with their documented defaults.
func (c PipelineConfig) WithDefaults() PipelineConfig {
	if c.Extraction.MaxPages <= 0 {
		c.Extraction.MaxPages = 3
	}
	if c.Extraction.Lookup.MaxRetries <= 0 {
		c.Extraction.Lookup.MaxRetries = 3
	}
	if c.Extraction.Lookup.Timeout <= 0 {
		c.Extraction.Lookup.Timeout = 10 * time.Second
	}
	if c.Extraction.LLM.MaxRetries <= 0 {
		c.Extraction.LLM.MaxRetries = 3
	}
	if c.Extraction.LLM.MaxChars <= 0 {
		c.Extraction.LLM.MaxChars = 16000
	}
	if c.Dedup.Action == "" {
		c.Dedup.Action = DuplicateMerge
	}
	if c.Dedup.SimilarityThreshold <= 0 {
		c.Dedup.SimilarityThreshold = 0.90
	}
	if c.Match.ConfidenceThreshold <= 0 {
		c.Match.ConfidenceThreshold = 0.85
	}
	if c.Match.MinPapersForTopic <= 0 {
		c.Match.MinPapersForTopic = 3
	}
	if c.Match.AuthorBonus <= 0 {
		c.Match.AuthorBonus = 0.10
	}
	if c.Match.YearBonus <= 0 {
		c.Match.YearBonus = 0.05
	}
	if c.Match.CoEqualMargin <= 0 {
		c.Match.CoEqualMargin = 0.05
	}
	if c.Match.PlausibleFloor <= 0 {
		c.Match.PlausibleFloor = 0.30
	}
	if c.Library.RecentRetentionDays <= 0 {
		c.Library.RecentRetentionDays = 3
	}
	if c.Library.MaxFilenameLength <= 0 {
		c.Library.MaxFilenameLength = 200
	}
	if c.Zotero.LibraryType == "" {
		c.Zotero.LibraryType = "user"
	}
	if c.TaxonomyPath == "" {
		c.TaxonomyPath = "topics.yaml"
	}
	return c
}
