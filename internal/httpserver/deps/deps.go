package deps

import (
	"time"

	"github.com/tote-app/tote/internal/fetcher"
	"github.com/tote-app/tote/internal/ingest"
	"github.com/tote-app/tote/internal/logger"
	"github.com/tote-app/tote/internal/store/catalog"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	Catalog        *catalog.Store      // the bookmark/category catalog
	Events         *catalog.Recorder   // change history for pull-based clients
	Coordinator    *ingest.Coordinator // per-bookmark ingestion pipeline
	Fetcher        *fetcher.Fetcher    // shared HTTP fetcher (extraction-only commands)
	FaviconService string              // favicon fallback endpoint
}
