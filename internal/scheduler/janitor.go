package scheduler

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/logger"
)

const (
	// DefaultStaleAfter is the age past which an abandoned temp file is
	// considered dead. Generous so a slow in-progress write is never hit.
	DefaultStaleAfter = time.Hour
)

// BookmarkLister exposes the set of bookmark ids the catalog knows.
type BookmarkLister interface {
	BookmarkIDs() []string
}

// CacheJanitor periodically sweeps the cache tree for leftovers: temp
// files abandoned by interrupted writes and entry directories whose
// bookmark no longer exists.
type CacheJanitor struct {
	layout     *cache.Layout
	catalog    BookmarkLister
	logger     logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	stopCh     chan struct{}
}

// NewCacheJanitor creates a new cache janitor.
func NewCacheJanitor(
	layout *cache.Layout,
	catalog BookmarkLister,
	log logger.Logger,
	interval time.Duration,
	staleAfter time.Duration,
) *CacheJanitor {
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	return &CacheJanitor{
		layout:     layout,
		catalog:    catalog,
		logger:     log,
		interval:   interval,
		staleAfter: staleAfter,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (j *CacheJanitor) Start(ctx context.Context) error {
	// Run immediately on start
	if err := j.Sweep(ctx); err != nil {
		j.logger.Warn("initial cache sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := j.Sweep(ctx); err != nil {
					j.logger.Error("cache sweep failed",
						logger.Error(err))
				}
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor.
func (j *CacheJanitor) Stop() {
	close(j.stopCh)
}

// Sweep removes orphan entry directories and stale temp files.
func (j *CacheJanitor) Sweep(_ context.Context) error {
	now := time.Now()

	orphans := j.sweepOrphans()
	tmps, err := j.sweepTempFiles(now)

	if orphans > 0 || tmps > 0 {
		j.logger.Info("cache sweep completed",
			logger.Int("orphan_entries", orphans),
			logger.Int("stale_temp_files", tmps))
	} else {
		j.logger.Debug("nothing to sweep")
	}
	return err
}

// sweepOrphans removes entry directories with no matching bookmark.
func (j *CacheJanitor) sweepOrphans() int {
	ids, err := j.layout.EntryIDs()
	if err != nil {
		j.logger.Warn("failed to list cache entries",
			logger.Error(err))
		return 0
	}

	known := make(map[string]bool)
	for _, id := range j.catalog.BookmarkIDs() {
		known[id] = true
	}

	removed := 0
	for _, id := range ids {
		if known[id] {
			continue
		}
		if err := j.layout.RemoveEntry(id); err != nil {
			j.logger.Warn("failed to remove orphan cache entry",
				logger.String("entry_id", id),
				logger.Error(err))
			continue
		}
		j.logger.Info("removed orphan cache entry",
			logger.String("entry_id", id))
		removed++
	}
	return removed
}

// sweepTempFiles removes .tmp files older than the staleness threshold.
func (j *CacheJanitor) sweepTempFiles(now time.Time) (int, error) {
	fs := j.layout.Fs()
	removed := 0

	err := afero.Walk(fs, j.layout.Root(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // keep walking
		}
		if info.IsDir() || !strings.HasSuffix(path, cache.TmpSuffix) {
			return nil
		}
		if now.Sub(info.ModTime()) < j.staleAfter {
			return nil
		}
		if rerr := fs.Remove(path); rerr != nil {
			j.logger.Warn("failed to remove stale temp file",
				logger.String("path", path),
				logger.Error(rerr))
			return nil
		}
		j.logger.Info("removed stale temp file",
			logger.String("path", path))
		removed++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return removed, err
	}
	return removed, nil
}
