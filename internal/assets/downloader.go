package assets

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/fetcher"
	"github.com/tote-app/tote/internal/logger"
)

// DefaultFaviconService is the last-resort icon source, queried when
// extraction produced no icon URL at all.
const DefaultFaviconService = "https://www.google.com/s2/favicons"

// Result carries the local paths that were successfully written.
// An empty path means that asset was not obtained; that is not an error.
type Result struct {
	IconPath  string
	ImagePath string
}

// Downloader materializes a bookmark's icon and hero image into its cache
// entry directory. The two assets are fetched independently and
// concurrently; failure of one never blocks the other.
type Downloader struct {
	fetcher        *fetcher.Fetcher
	layout         *cache.Layout
	maxBytes       int64
	faviconService string
	logger         logger.Logger
}

func New(f *fetcher.Fetcher, l *cache.Layout, maxBytes int64, log logger.Logger) *Downloader {
	return &Downloader{
		fetcher:        f,
		layout:         l,
		maxBytes:       maxBytes,
		faviconService: DefaultFaviconService,
		logger:         log,
	}
}

// FallbackIconURL builds the favicon-service URL for a page host.
func FallbackIconURL(service, host string) string {
	return service + "?domain=" + url.QueryEscape(host) + "&sz=64"
}

// Download fetches and persists the assets referenced by meta. pageURL is
// the ingested page's final URL, used only to synthesize a favicon
// service fallback when no icon URL was extracted.
func (d *Downloader) Download(ctx context.Context, id string, meta domain.Metadata, pageURL *url.URL) Result {
	iconURL := meta.IconURL
	if iconURL == "" && pageURL != nil && pageURL.Hostname() != "" {
		iconURL = FallbackIconURL(d.faviconService, pageURL.Hostname())
	}

	var (
		res Result
		wg  sync.WaitGroup
	)

	if iconURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.IconPath = d.saveAsset(ctx, id, "icon", iconURL)
		}()
	}
	if meta.ImageURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.ImagePath = d.saveAsset(ctx, id, "image", meta.ImageURL)
		}()
	}
	wg.Wait()

	return res
}

// saveAsset downloads one asset and writes it via temp-rename. Returns
// the final local path, or empty on any failure.
func (d *Downloader) saveAsset(ctx context.Context, id, name, rawURL string) string {
	page, err := d.fetcher.FetchBytes(ctx, rawURL, d.maxBytes)
	if err != nil {
		d.logger.Warn("asset download failed",
			logger.String("bookmark_id", id),
			logger.String("asset", name),
			logger.String("url", rawURL),
			logger.Error(err))
		return ""
	}

	path, err := d.write(ctx, id, name, page)
	if err != nil {
		d.logger.Warn("asset write failed",
			logger.String("bookmark_id", id),
			logger.String("asset", name),
			logger.Error(err))
		return ""
	}

	d.logger.Debug("asset cached",
		logger.String("bookmark_id", id),
		logger.String("asset", name),
		logger.String("path", path))
	return path
}

func (d *Downloader) write(ctx context.Context, id, name string, page *fetcher.Page) (string, error) {
	// Cooperative cancellation: do not start a write for a superseded job.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSuperseded, err)
	}

	if _, err := d.layout.EnsureEntryDir(id); err != nil {
		return "", domain.IOErr(err)
	}

	path := d.layout.AssetPath(id, name, cache.ExtensionFor(page.ContentType))
	if err := cache.WriteFileAtomic(d.layout.Fs(), path, page.Body); err != nil {
		return "", domain.IOErr(err)
	}
	return path, nil
}
