// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// stablePollInterval is how often a newly arrived file's size is polled
// while waiting for the writer to finish.
var stablePollInterval = 500 * time.Millisecond

// stableChecks is how many consecutive unchanged size polls mark a file as
// fully written.
const stableChecks = 3

// retentionSchedule runs the holding-area sweep daily.
const retentionSchedule = "0 3 * * *"

// Watch processes the current inbox contents, then blocks watching the
// inbox for new PDFs until the context is cancelled. Arriving files are
// queued and processed strictly serially; a daily cron job sweeps expired
// holding-area copies.
func (p *Pipeline) Watch(ctx context.Context, w io.Writer) error {
	if _, err := p.ProcessInbox(ctx, w); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(p.Cfg.Library.InboxDir); err != nil {
		return fmt.Errorf("watching %s: %w", p.Cfg.Library.InboxDir, err)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(retentionSchedule, func() {
		if _, err := p.CleanupRecent(w); err != nil {
			p.logger().Error("retention sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Serial queue: watcher events only enqueue paths; this goroutine's
	// select loop is the sole consumer, so papers never process
	// concurrently.
	queue := make(chan string, 256)

	fmt.Fprintf(w, "watching %s\n", p.Cfg.Library.InboxDir)
	p.logger().Info("watch started", zap.String("inbox", p.Cfg.Library.InboxDir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			select {
			case queue <- event.Name:
			default:
				p.logger().Warn("watch queue full, dropping event", zap.String("file", event.Name))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			p.logger().Error("watcher error", zap.Error(err))

		case path := <-queue:
			if err := waitStable(ctx, path); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// File vanished mid-copy or similar; nothing to process.
				p.logger().Warn("file never stabilized", zap.String("file", filepath.Base(path)), zap.Error(err))
				continue
			}

			rec, err := p.ProcessFile(ctx, path, w)
			if err != nil {
				var storeErr *StorageError
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.As(err, &storeErr) {
					return err
				}
				fmt.Fprintf(w, "failed  %s: %v\n", filepath.Base(path), err)
				p.logger().Error("paper failed", zap.String("file", filepath.Base(path)), zap.Error(err))
				continue
			}
			p.logger().Info("processed", zap.String("file", filepath.Base(path)), zap.String("status", string(rec.Status)))
		}
	}
}

// waitStable blocks until the file's size stops changing, so partially
// copied PDFs are not processed mid-write.
func waitStable(ctx context.Context, path string) error {
	var lastSize int64 = -1
	stable := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stablePollInterval):
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() == lastSize && info.Size() > 0 {
			stable++
			if stable >= stableChecks {
				return nil
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}
	}
}
