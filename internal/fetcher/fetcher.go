package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/logger"
	"github.com/tote-app/tote/internal/utils"
)

// MaxRedirects caps redirect chains per request.
const MaxRedirects = 10

var errTooManyRedirects = errors.New("too many redirects")

// Page is the result of fetching a URL: the body plus the URL the chain
// of redirects actually landed on. FinalURL is what relative asset URLs
// are resolved against.
type Page struct {
	FinalURL    *url.URL
	ContentType string
	Body        []byte
}

// Options configures a Fetcher.
type Options struct {
	ConnectTimeout time.Duration // per-connection dial timeout
	Timeout        time.Duration // total wall-clock per request
	Permits        int           // global in-flight cap
	MaxHTMLBytes   int64         // body cap for Fetch
	UserAgent      string
}

// Fetcher is a bounded-concurrency HTTP client. At most Permits requests
// are in flight at once; excess callers block on the permit channel.
type Fetcher struct {
	client    *http.Client
	permits   chan struct{}
	maxHTML   int64
	userAgent string
	logger    logger.Logger
}

func New(opts Options, log logger.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        opts.Permits,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return errTooManyRedirects
			}
			// Cooperative cancellation between redirect hops.
			return req.Context().Err()
		},
	}

	return &Fetcher{
		client:    client,
		permits:   make(chan struct{}, opts.Permits),
		maxHTML:   opts.MaxHTMLBytes,
		userAgent: opts.UserAgent,
		logger:    log,
	}
}

// Fetch retrieves a page body, following up to MaxRedirects redirects and
// capping the body at the configured HTML limit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	return f.do(ctx, rawURL, f.maxHTML)
}

// FetchBytes retrieves a capped binary body. Used for assets, where the
// caller supplies a per-asset limit.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string, maxBytes int64) (*Page, error) {
	return f.do(ctx, rawURL, maxBytes)
}

func (f *Fetcher) do(ctx context.Context, rawURL string, maxBytes int64) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.NetworkErr(fmt.Errorf("parse url: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, domain.UnsupportedSchemeErr(u.Scheme)
	}

	// Acquire a global fetch permit; excess requests queue here.
	select {
	case f.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, classify(ctx.Err())
	}
	defer func() { <-f.permits }()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.NetworkErr(err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.HTTPStatusErr(resp.StatusCode)
	}

	// Read one byte past the cap so an exactly-at-limit body still
	// succeeds but anything larger fails cleanly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, classify(err)
	}
	if int64(len(body)) > maxBytes {
		return nil, domain.PayloadTooLargeErr(maxBytes)
	}

	f.logger.Debug("fetched",
		logger.String("url", u.String()),
		logger.String("final_url", resp.Request.URL.String()),
		logger.Int("bytes", len(body)),
		logger.Duration("duration", time.Since(start)))

	return &Page{
		FinalURL:    resp.Request.URL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// classify maps transport-level failures onto the ingestion taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TimeoutErr(err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return domain.TimeoutErr(err)
	}
	if errors.Is(err, context.Canceled) {
		// Cancellation mid-flight means a newer request took over.
		return fmt.Errorf("%w: %w", domain.ErrSuperseded, err)
	}
	return domain.NetworkErr(err)
}
