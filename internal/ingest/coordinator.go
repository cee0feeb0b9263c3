package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tote-app/tote/internal/assets"
	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/extractor"
	"github.com/tote-app/tote/internal/fetcher"
	"github.com/tote-app/tote/internal/logger"
)

// Coordinator orchestrates the ingestion pipeline per bookmark:
// fetch -> extract -> persist content -> download assets. It guarantees
// at most one ingestion in flight per bookmark id; concurrent callers for
// the same id attach to the running job, and a call with a different URL
// supersedes it.
type Coordinator struct {
	fetcher    *fetcher.Fetcher
	layout     *cache.Layout
	downloader *assets.Downloader
	budget     time.Duration
	logger     logger.Logger

	mu      sync.Mutex
	tickets map[string]*ticket
}

func New(
	f *fetcher.Fetcher,
	layout *cache.Layout,
	dl *assets.Downloader,
	budget time.Duration,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{
		fetcher:    f,
		layout:     layout,
		downloader: dl,
		budget:     budget,
		logger:     log,
		tickets:    make(map[string]*ticket),
	}
}

// Ingest runs (or joins) the ingestion of url for the given bookmark id.
//
//   - Same id, same URL while in flight: attach to the running job, no
//     second fetch is started.
//   - Same id, different URL: the running job is cancelled, its waiters
//     see Superseded, and a fresh job starts for the new URL.
//
// The job itself runs detached from the caller's context under the
// coordinator's time budget; ctx only bounds how long this caller waits.
func (c *Coordinator) Ingest(ctx context.Context, id, url string) (domain.IngestResult, error) {
	c.mu.Lock()
	if t, ok := c.tickets[id]; ok {
		if t.url == url {
			c.mu.Unlock()
			return c.wait(ctx, t)
		}
		c.logger.Info("superseding in-flight ingestion",
			logger.String("bookmark_id", id),
			logger.String("old_url", t.url),
			logger.String("new_url", url))
		t.supersede()
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), c.budget)
	t := newTicket(id, url, cancel)
	c.tickets[id] = t
	c.mu.Unlock()

	go c.run(jobCtx, t)

	return c.wait(ctx, t)
}

// InFlight reports whether an ingestion is currently running for id.
func (c *Coordinator) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tickets[id]
	return ok && (t.state == StateInFlight || t.state == StateWriting)
}

// wait blocks until the ticket resolves or the caller gives up.
func (c *Coordinator) wait(ctx context.Context, t *ticket) (domain.IngestResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.IngestResult{}, domain.TimeoutErr(ctx.Err())
		}
		return domain.IngestResult{}, ctx.Err()
	}
}

// run executes the pipeline and resolves the ticket. It owns the ticket's
// terminal transition and map removal.
func (c *Coordinator) run(ctx context.Context, t *ticket) {
	defer t.cancel()

	res, err := c.pipeline(ctx, t)

	c.mu.Lock()
	switch {
	case t.state == StateCancelled:
		// A newer request for this id took over; its ticket already
		// replaced ours in the map.
		err = domain.ErrSuperseded
	case err != nil:
		t.state = StateFailed
	default:
		t.state = StateSucceeded
	}
	if c.tickets[t.id] == t {
		delete(c.tickets, t.id)
	}
	c.mu.Unlock()

	if err != nil && !errors.Is(err, domain.ErrSuperseded) {
		c.logger.Warn("ingestion failed",
			logger.String("bookmark_id", t.id),
			logger.String("url", t.url),
			logger.Error(err))
	}

	t.result, t.err = res, err
	close(t.done)
}

// pipeline is the fetch -> extract -> write -> assets sequence. Fetch and
// extract failures are fatal; content-write and asset failures degrade to
// a partial result.
func (c *Coordinator) pipeline(ctx context.Context, t *ticket) (domain.IngestResult, error) {
	start := time.Now()

	page, err := c.fetcher.Fetch(ctx, t.url)
	if err != nil {
		return domain.IngestResult{}, err
	}

	meta, err := extractor.Extract(page.Body, page.FinalURL)
	if err != nil {
		return domain.IngestResult{}, err
	}

	c.setState(t, StateWriting)

	res := domain.IngestResult{Metadata: meta}

	// Cooperative cancellation point before touching the filesystem.
	if ctx.Err() == nil {
		if path, werr := c.writeContent(t.id, page.Body); werr != nil {
			c.logger.Warn("content cache write failed",
				logger.String("bookmark_id", t.id),
				logger.Error(werr))
		} else {
			res.ContentPath = path
		}
	}

	dl := c.downloader.Download(ctx, t.id, meta, page.FinalURL)
	res.IconPath = dl.IconPath
	res.ImagePath = dl.ImagePath

	c.logger.Info("ingestion complete",
		logger.String("bookmark_id", t.id),
		logger.String("url", t.url),
		logger.String("title", meta.Title),
		logger.Bool("content_cached", res.ContentPath != ""),
		logger.Duration("duration", time.Since(start)))

	return res, nil
}

func (c *Coordinator) writeContent(id string, body []byte) (string, error) {
	if _, err := c.layout.EnsureEntryDir(id); err != nil {
		return "", domain.IOErr(err)
	}
	path := c.layout.ContentPath(id)
	if err := cache.WriteFileAtomic(c.layout.Fs(), path, body); err != nil {
		return "", domain.IOErr(err)
	}
	return path, nil
}

func (c *Coordinator) setState(t *ticket, s State) {
	c.mu.Lock()
	if t.state != StateCancelled {
		t.state = s
	}
	c.mu.Unlock()
}
