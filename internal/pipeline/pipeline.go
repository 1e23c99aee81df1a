// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a PDF from the inbox to its filed location:
// extraction, duplicate detection, topic matching, filing, and the
// bookkeeping that follows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litfiler/internal/dedup"
	"github.com/pdiddy/litfiler/internal/extract"
	"github.com/pdiddy/litfiler/internal/index"
	"github.com/pdiddy/litfiler/internal/topics"
	"github.com/pdiddy/litfiler/pkg/types"
)

// Library directory layout under LibraryDir.
const (
	byTopicDir     = "by-topic"
	recentDir      = "recent"
	unknowablesDir = "unknowables"
	corruptedDir   = "corrupted"
)

// Extractor resolves metadata for one PDF. Satisfied by
// extract.Orchestrator; tests substitute fakes.
type Extractor interface {
	Extract(ctx context.Context, path string) (*types.MetadataRecord, error)
}

// Enhancer generates the summary and topic suggestions for a record.
type Enhancer interface {
	Enhance(ctx context.Context, rec *types.MetadataRecord) error
}

// ReferenceSync pushes filed papers to an external reference manager.
type ReferenceSync interface {
	PushPaper(ctx context.Context, rec *types.MetadataRecord) error
}

// Pipeline wires the stages together. All filing mutations happen under
// the store locks of the index and profile store; ProcessInbox itself is
// strictly serial.
type Pipeline struct {
	Cfg       types.PipelineConfig
	Extractor Extractor
	Enhancer  Enhancer
	Detector  *dedup.Detector
	Matcher   *topics.Matcher
	Index     *index.Store
	Profiles  *topics.Store
	Catalog   *index.Catalog
	Sync      ReferenceSync
	Log       *zap.Logger
}

// BatchSummary holds counts from one inbox processing run.
type BatchSummary struct {
	Filed       int
	Review      int
	NewTopic    int
	Duplicates  int
	Unparseable int
	Corrupt     int
	Failed      int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.Filed + s.Review + s.NewTopic + s.Duplicates + s.Unparseable + s.Corrupt + s.Failed
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// ProcessInbox processes every PDF currently in the inbox, one at a time.
// A single paper's failure never aborts the batch; cancellation is honored
// between papers. Storage failures are returned immediately since every
// later decision would be built on them.
func (p *Pipeline) ProcessInbox(ctx context.Context, w io.Writer) (BatchSummary, error) {
	entries, err := os.ReadDir(p.Cfg.Library.InboxDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading inbox %s: %w", p.Cfg.Library.InboxDir, err)
	}

	var summary BatchSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := filepath.Join(p.Cfg.Library.InboxDir, entry.Name())
		rec, err := p.ProcessFile(ctx, path, w)
		if err != nil {
			var storeErr *StorageError
			if errors.As(err, &storeErr) {
				return summary, err
			}
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			p.logger().Error("paper failed", zap.String("file", entry.Name()), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.add(rec.Status)
	}

	fmt.Fprintf(w, "\nfiled: %d, review: %d, new-topic: %d, duplicates: %d, unparseable: %d, corrupt: %d, failed: %d\n",
		summary.Filed, summary.Review, summary.NewTopic, summary.Duplicates,
		summary.Unparseable, summary.Corrupt, summary.Failed)
	return summary, nil
}

func (s *BatchSummary) add(status types.FilingStatus) {
	switch status {
	case types.StatusAutoFiled:
		s.Filed++
	case types.StatusNeedsReview:
		s.Review++
	case types.StatusNeedsReviewNewTopic:
		s.NewTopic++
	case types.StatusDuplicate:
		s.Duplicates++
	case types.StatusUnparseable:
		s.Unparseable++
	case types.StatusCorrupt:
		s.Corrupt++
	}
}

// StorageError marks an index or profile store failure. Fatal to a batch:
// every subsequent decision depends on the store's correctness.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ProcessFile runs the full pipeline for one PDF and returns its final
// record. The returned record's Status says where the paper ended up.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, w io.Writer) (*types.MetadataRecord, error) {
	name := filepath.Base(path)
	log := p.logger().With(zap.String("file", name))

	hash, err := index.Fingerprint(path)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting: %w", err)
	}

	rec, err := p.Extractor.Extract(ctx, path)
	switch {
	case errors.Is(err, extract.ErrCorruptDocument):
		return p.fileCorrupt(path, hash, w, log)
	case errors.Is(err, extract.ErrNoTitle):
		return p.fileUnparseable(rec, path, hash, w, log)
	case err != nil:
		return nil, fmt.Errorf("extracting: %w", err)
	}
	rec.FileHash = hash

	log.Info("extracted",
		zap.String("title", rec.Title),
		zap.String("doi", rec.DOI),
		zap.Float64("confidence", rec.OverallConfidence()))

	if match := p.Detector.FindDuplicate(rec, p.Index.All()); match != nil {
		return p.handleDuplicate(ctx, rec, match, path, w, log)
	}

	if p.Enhancer != nil {
		if err := p.Enhancer.Enhance(ctx, rec); err != nil {
			// Best-effort: a failed enhancement never fails the paper.
			log.Warn("enhancement failed", zap.Error(err))
		}
	}

	decision := p.Matcher.Match(rec, p.Profiles.Snapshot())
	rec.Status = decision.Status
	rec.Topics = decision.Topics
	if len(decision.Scores) > 0 {
		rec.MatchScore = decision.Scores[0].Score
	}

	switch decision.Status {
	case types.StatusAutoFiled:
		if err := p.fileToTopics(ctx, rec, path, w, log); err != nil {
			return nil, err
		}
	default:
		if err := p.holdForReview(rec, path, w, log); err != nil {
			return nil, err
		}
	}

	if p.Catalog != nil {
		if err := p.Catalog.Upsert(ctx, rec); err != nil {
			log.Warn("catalog update failed", zap.Error(err))
		}
	}
	return rec, nil
}

// fileToTopics moves an auto-filed paper into its primary topic directory
// and performs the bookkeeping that only happens on an actual filing:
// index write, profile update, optional holding-area copy and reference
// sync.
func (p *Pipeline) fileToTopics(ctx context.Context, rec *types.MetadataRecord, path string, w io.Writer, log *zap.Logger) error {
	filename := GenerateFilename(rec, p.Cfg.Library.MaxFilenameLength)
	destDir := filepath.Join(p.Cfg.Library.LibraryDir, byTopicDir, rec.Topics[0])
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &StorageError{Err: err}
	}

	dest := ResolveDuplicateFilename(destDir, filename)
	if err := moveFile(path, dest); err != nil {
		return &StorageError{Err: err}
	}
	rec.FilePath = dest
	rec.ProcessedAt = time.Now().UTC()

	if err := p.Index.Put(rec); err != nil {
		return &StorageError{Err: err}
	}
	if err := p.Profiles.RecordFiling(rec.Topics, rec); err != nil {
		return &StorageError{Err: err}
	}

	if p.Cfg.Library.AlwaysCopyToRecent {
		recDir := filepath.Join(p.Cfg.Library.LibraryDir, recentDir)
		if err := os.MkdirAll(recDir, 0o755); err == nil {
			if err := copyFile(dest, filepath.Join(recDir, filepath.Base(dest))); err != nil {
				log.Warn("recent copy failed", zap.Error(err))
			}
		}
	}

	if p.Sync != nil {
		if err := p.Sync.PushPaper(ctx, rec); err != nil {
			log.Warn("reference sync failed", zap.Error(err))
		}
	}

	fmt.Fprintf(w, "filed   %s -> %s (%.2f)\n", filepath.Base(path), strings.Join(rec.Topics, ", "), rec.MatchScore)
	log.Info("auto-filed",
		zap.Strings("topics", rec.Topics),
		zap.Float64("score", rec.MatchScore),
		zap.String("dest", dest))
	return nil
}

// holdForReview moves a paper the matcher could not confidently place into
// the recent/ holding area. The record is indexed so duplicates of it are
// caught while it waits.
func (p *Pipeline) holdForReview(rec *types.MetadataRecord, path string, w io.Writer, log *zap.Logger) error {
	destDir := filepath.Join(p.Cfg.Library.LibraryDir, recentDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &StorageError{Err: err}
	}

	dest := ResolveDuplicateFilename(destDir, GenerateFilename(rec, p.Cfg.Library.MaxFilenameLength))
	if err := moveFile(path, dest); err != nil {
		return &StorageError{Err: err}
	}
	rec.FilePath = dest
	rec.ProcessedAt = time.Now().UTC()

	if err := p.Index.Put(rec); err != nil {
		return &StorageError{Err: err}
	}

	fmt.Fprintf(w, "review  %s (%s)\n", filepath.Base(dest), rec.Status)
	log.Info("held for review",
		zap.String("status", string(rec.Status)),
		zap.Strings("suggested", rec.Topics),
		zap.Float64("score", rec.MatchScore))
	return nil
}

// fileCorrupt routes an unreadable PDF to corrupted/. Terminal: no
// extraction method can recover it, so it skips dedup and matching.
func (p *Pipeline) fileCorrupt(path, hash string, w io.Writer, log *zap.Logger) (*types.MetadataRecord, error) {
	rec := &types.MetadataRecord{
		OriginalFilename: filepath.Base(path),
		FileHash:         hash,
		Status:           types.StatusCorrupt,
		ProcessedAt:      time.Now().UTC(),
	}
	destDir := filepath.Join(p.Cfg.Library.LibraryDir, corruptedDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &StorageError{Err: err}
	}

	dest := ResolveDuplicateFilename(destDir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return nil, &StorageError{Err: err}
	}
	rec.FilePath = dest

	if err := p.Index.Put(rec); err != nil {
		return nil, &StorageError{Err: err}
	}

	fmt.Fprintf(w, "corrupt %s\n", filepath.Base(path))
	log.Warn("corrupt document")
	return rec, nil
}

// fileUnparseable routes a paper with no usable title to unknowables/.
// Without a title it can neither be named nor matched, so dedup and
// matching are skipped.
func (p *Pipeline) fileUnparseable(rec *types.MetadataRecord, path, hash string, w io.Writer, log *zap.Logger) (*types.MetadataRecord, error) {
	if rec == nil {
		rec = &types.MetadataRecord{OriginalFilename: filepath.Base(path)}
	}
	rec.FileHash = hash
	rec.Status = types.StatusUnparseable
	rec.ProcessedAt = time.Now().UTC()

	destDir := filepath.Join(p.Cfg.Library.LibraryDir, unknowablesDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &StorageError{Err: err}
	}

	dest := ResolveDuplicateFilename(destDir, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return nil, &StorageError{Err: err}
	}
	rec.FilePath = dest

	if err := p.Index.Put(rec); err != nil {
		return nil, &StorageError{Err: err}
	}

	fmt.Fprintf(w, "unparseable %s\n", filepath.Base(path))
	log.Warn("unparseable document")
	return rec, nil
}

// handleDuplicate applies the configured duplicate action. The incoming
// record's status becomes duplicate in every branch that resolves here;
// prompt leaves the file in the inbox for interactive review.
func (p *Pipeline) handleDuplicate(ctx context.Context, rec *types.MetadataRecord, match *dedup.Match, path string, w io.Writer, log *zap.Logger) (*types.MetadataRecord, error) {
	log = log.With(
		zap.String("existing", match.Existing.ID()),
		zap.String("reason", string(match.Reason)),
		zap.Float64("confidence", match.Confidence))

	action := p.Cfg.Dedup.Action
	switch action {
	case types.DuplicateSkip:
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("discarding duplicate: %w", err)
		}
		log.Info("duplicate skipped")

	case types.DuplicatePrompt:
		log.Info("duplicate deferred to review")
		fmt.Fprintf(w, "dup?    %s matches %s (%s %.2f), left in inbox\n",
			filepath.Base(path), match.Existing.ID(), match.Reason, match.Confidence)
		rec.Status = types.StatusDuplicate
		return rec, nil

	default: // merge
		dedup.Merge(match.Existing, rec)

		// Keep the larger file: a bigger PDF of the same paper usually
		// means better scans or supplementary pages.
		if rec.FileSize > match.Existing.FileSize && match.Existing.FilePath != "" {
			if err := moveFile(path, match.Existing.FilePath); err != nil {
				return nil, fmt.Errorf("replacing duplicate file: %w", err)
			}
			match.Existing.FileSize = rec.FileSize
			match.Existing.FileHash = rec.FileHash
		} else if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("discarding duplicate: %w", err)
		}

		if err := p.Index.Put(match.Existing); err != nil {
			return nil, &StorageError{Err: err}
		}
		if p.Catalog != nil {
			if err := p.Catalog.Upsert(ctx, match.Existing); err != nil {
				log.Warn("catalog update failed", zap.Error(err))
			}
		}
		log.Info("duplicate merged")
	}

	fmt.Fprintf(w, "dup     %s matches %s (%s %.2f, %s)\n",
		filepath.Base(path), match.Existing.ID(), match.Reason, match.Confidence, action)
	rec.Status = types.StatusDuplicate
	return rec, nil
}

// FileManual files a held-for-review record under reviewer-chosen topics.
// This is the one path besides auto-filing that updates topic profiles.
func (p *Pipeline) FileManual(ctx context.Context, rec *types.MetadataRecord, chosen []string) error {
	if len(chosen) == 0 {
		return fmt.Errorf("no topics chosen")
	}

	destDir := filepath.Join(p.Cfg.Library.LibraryDir, byTopicDir, chosen[0])
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &StorageError{Err: err}
	}

	dest := ResolveDuplicateFilename(destDir, filepath.Base(rec.FilePath))
	if err := moveFile(rec.FilePath, dest); err != nil {
		return &StorageError{Err: err}
	}

	rec.FilePath = dest
	rec.Topics = chosen
	rec.Status = types.StatusAutoFiled
	rec.ProcessedAt = time.Now().UTC()

	if err := p.Index.Put(rec); err != nil {
		return &StorageError{Err: err}
	}
	if err := p.Profiles.RecordFiling(chosen, rec); err != nil {
		return &StorageError{Err: err}
	}
	if p.Catalog != nil {
		if err := p.Catalog.Upsert(ctx, rec); err != nil {
			p.logger().Warn("catalog update failed", zap.Error(err))
		}
	}
	if p.Sync != nil {
		if err := p.Sync.PushPaper(ctx, rec); err != nil {
			p.logger().Warn("reference sync failed", zap.Error(err))
		}
	}
	return nil
}

// CleanupRecent deletes holding-area copies older than the retention
// window. Only files whose records were auto-filed elsewhere are touched;
// papers still awaiting review stay put regardless of age.
func (p *Pipeline) CleanupRecent(w io.Writer) (int, error) {
	dir := filepath.Join(p.Cfg.Library.LibraryDir, recentDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	held := make(map[string]bool)
	for _, rec := range p.Index.All() {
		if rec.Status != types.StatusAutoFiled && rec.FilePath != "" {
			held[filepath.Base(rec.FilePath)] = true
		}
	}

	cutoff := time.Now().AddDate(0, 0, -p.Cfg.Library.RecentRetentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || held[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			fmt.Fprintf(w, "warning: could not remove %s: %v\n", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		fmt.Fprintf(w, "cleaned %d expired file(s) from %s\n", removed, recentDir)
		p.logger().Info("holding area cleaned", zap.Int("removed", removed))
	}
	return removed, nil
}

// moveFile renames src to dst, falling back to copy-then-remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}
