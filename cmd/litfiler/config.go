// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/litfiler/internal/dedup"
	"github.com/pdiddy/litfiler/internal/extract"
	"github.com/pdiddy/litfiler/internal/index"
	"github.com/pdiddy/litfiler/internal/pipeline"
	"github.com/pdiddy/litfiler/internal/topics"
	"github.com/pdiddy/litfiler/internal/zotero"
	"github.com/pdiddy/litfiler/pkg/types"
)

// Data files kept under DataDir.
const (
	indexFile    = "index.yaml"
	profilesFile = "profiles.yaml"
	catalogFile  = "catalog.db"
	logFile      = "litfiler.log"
)

// pipelineConfig assembles the stage configuration from viper and the
// loaded secrets. Secrets fill keys the config file leaves empty, so a
// key in litfiler.yaml wins over .secrets/.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Extraction: types.ExtractionConfig{
			Lookup: types.LookupConfig{
				Email:      secretDefault("crossref-email", viper.GetString("extraction.lookup.email")),
				MaxRetries: viper.GetInt("extraction.lookup.max_retries"),
			},
			LLM: types.LLMConfig{
				Model:      viper.GetString("extraction.llm.model"),
				APIKey:     secretDefault("anthropic-api-key", viper.GetString("extraction.llm.api_key")),
				MaxRetries: viper.GetInt("extraction.llm.max_retries"),
				MaxChars:   viper.GetInt("extraction.llm.max_chars"),
			},
			MaxPages: viper.GetInt("extraction.max_pages"),
		},
		Dedup: types.DedupConfig{
			Action:              types.DuplicateAction(viper.GetString("dedup.action")),
			SimilarityThreshold: viper.GetFloat64("dedup.similarity_threshold"),
		},
		Match: types.MatchConfig{
			ConfidenceThreshold: viper.GetFloat64("match.confidence_threshold"),
			MinPapersForTopic:   viper.GetInt("match.min_papers_for_topic"),
			AuthorBonus:         viper.GetFloat64("match.author_bonus"),
			YearBonus:           viper.GetFloat64("match.year_bonus"),
			CoEqualMargin:       viper.GetFloat64("match.co_equal_margin"),
			PlausibleFloor:      viper.GetFloat64("match.plausible_floor"),
		},
		Library: types.LibraryConfig{
			InboxDir:            viper.GetString("library.inbox_dir"),
			LibraryDir:          viper.GetString("library.library_dir"),
			DataDir:             viper.GetString("library.data_dir"),
			RecentRetentionDays: viper.GetInt("library.recent_retention_days"),
			AlwaysCopyToRecent:  viper.GetBool("library.always_copy_to_recent"),
			MaxFilenameLength:   viper.GetInt("library.max_filename_length"),
		},
		Zotero: types.ZoteroConfig{
			Enabled:     viper.GetBool("zotero.enabled"),
			APIKey:      secretDefault("zotero-api-key", viper.GetString("zotero.api_key")),
			UserID:      secretDefault("zotero-user-id", viper.GetString("zotero.user_id")),
			LibraryType: viper.GetString("zotero.library_type"),
		},
		TaxonomyPath: viper.GetString("taxonomy_path"),
	}

	cfg.Extraction.Lookup.Timeout = viper.GetDuration("extraction.lookup.timeout")
	cfg.Zotero.Timeout = viper.GetDuration("zotero.timeout")

	if cfg.Library.InboxDir == "" {
		cfg.Library.InboxDir = "inbox"
	}
	if cfg.Library.LibraryDir == "" {
		cfg.Library.LibraryDir = "library"
	}
	if cfg.Library.DataDir == "" {
		cfg.Library.DataDir = "data"
	}
	if cfg.Extraction.LLM.Model == "" {
		cfg.Extraction.LLM.Model = "claude-haiku-4-5-20251001"
	}
	return cfg.WithDefaults()
}

// buildPipeline wires the full pipeline from configuration. The returned
// cleanup function closes the catalog and flushes the logger.
func buildPipeline(cfg types.PipelineConfig) (*pipeline.Pipeline, func(), error) {
	if err := os.MkdirAll(cfg.Library.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	log, err := newLogger(cfg.Library.DataDir)
	if err != nil {
		return nil, nil, err
	}

	taxonomy, err := topics.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, nil, err
	}

	idx, err := index.Open(filepath.Join(cfg.Library.DataDir, indexFile))
	if err != nil {
		return nil, nil, err
	}
	profiles, err := topics.OpenStore(filepath.Join(cfg.Library.DataDir, profilesFile))
	if err != nil {
		return nil, nil, err
	}
	catalog, err := index.OpenCatalog(filepath.Join(cfg.Library.DataDir, catalogFile))
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Extraction.Lookup.Timeout}
	backend := &extract.ClaudeBackend{
		APIKey:     cfg.Extraction.LLM.APIKey,
		Model:      cfg.Extraction.LLM.Model,
		MaxRetries: cfg.Extraction.LLM.MaxRetries,
	}

	extractor := &extract.Orchestrator{
		Resolver: &extract.LookupClient{Client: httpClient, Config: cfg.Extraction.Lookup},
		MaxPages: cfg.Extraction.MaxPages,
	}
	var enhancer pipeline.Enhancer
	if cfg.Extraction.LLM.APIKey != "" {
		extractor.Parser = &extract.LLMParser{Backend: backend, MaxChars: cfg.Extraction.LLM.MaxChars}
		enhancer = &extract.Enhancer{Backend: backend, Taxonomy: taxonomy}
	}

	var refSync pipeline.ReferenceSync
	if cfg.Zotero.Enabled && cfg.Zotero.APIKey != "" && cfg.Zotero.UserID != "" {
		refSync = zotero.NewClient(cfg.Zotero)
	}

	p := &pipeline.Pipeline{
		Cfg:       cfg,
		Extractor: extractor,
		Enhancer:  enhancer,
		Detector:  dedup.NewDetector(cfg.Dedup),
		Matcher:   &topics.Matcher{Cfg: cfg.Match, Taxonomy: taxonomy},
		Index:     idx,
		Profiles:  profiles,
		Catalog:   catalog,
		Sync:      refSync,
		Log:       log,
	}

	cleanup := func() {
		catalog.Close()
		log.Sync()
	}
	return p, cleanup, nil
}

// newLogger writes structured JSON logs to DataDir/litfiler.log. The
// terminal stays reserved for the progress lines the pipeline prints.
func newLogger(dataDir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(dataDir, logFile)}
	cfg.ErrorOutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}
