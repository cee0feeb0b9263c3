package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/tote-app/tote/internal/assets"
	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/config"
	"github.com/tote-app/tote/internal/fetcher"
	"github.com/tote-app/tote/internal/httpserver"
	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/ingest"
	"github.com/tote-app/tote/internal/logger"
	"github.com/tote-app/tote/internal/scheduler"
	"github.com/tote-app/tote/internal/sources/seed"
	"github.com/tote-app/tote/internal/store/catalog"
	"github.com/tote-app/tote/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	catalog  *catalog.Store
	recorder *catalog.Recorder
	janitor  *scheduler.CacheJanitor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	fs := afero.NewOsFs()
	layout := cache.NewLayout(fs, cfg.CacheDir)

	f := fetcher.New(fetcher.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		Timeout:        cfg.FetchTimeout,
		Permits:        cfg.FetchPermits,
		MaxHTMLBytes:   cfg.MaxHTMLBytes,
		UserAgent:      cfg.UserAgent,
	}, loggerClient)

	downloader := assets.New(f, layout, cfg.MaxAssetBytes, loggerClient)
	coordinator := ingest.New(f, layout, downloader, cfg.IngestTimeout, loggerClient)

	seedCategories, err := seed.NewLoader(fs, cfg.SeedFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load category seed: %v", err)
		os.Exit(1)
	}

	store, err := catalog.Open(catalog.Options{
		Fs:             fs,
		Path:           filepath.Join(cfg.DataDir, "catalog.json"),
		SeedCategories: seedCategories,
		Layout:         layout,
		Ingester:       coordinator,
		Logger:         loggerClient,
	})
	if err != nil {
		loggerClient.Errorf("Failed to open catalog: %v", err)
		os.Exit(1)
	}

	recorder := catalog.NewRecorder(store, catalog.DefaultRecorderLimit)

	janitor := scheduler.NewCacheJanitor(
		layout,
		store,
		loggerClient,
		cfg.JanitorInterval,
		scheduler.DefaultStaleAfter,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		Catalog:        store,
		Events:         recorder,
		Coordinator:    coordinator,
		Fetcher:        f,
		FaviconService: assets.DefaultFaviconService,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   server,
		catalog:  store,
		recorder: recorder,
		janitor:  janitor,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Tote v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("Tote %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start cache janitor
	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	a.logger.Info("cache janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval))

	// Mirror catalog changes into the log while running.
	changes, cancelSub := a.catalog.Subscribe()
	go func() {
		for c := range changes {
			a.logger.Debug("catalog changed",
				logger.String("entity", string(c.Entity)),
				logger.String("id", c.ID),
				logger.String("kind", string(c.Kind)))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Let background ingests and cache deletes land before exiting.
	a.catalog.Wait()
	a.recorder.Close()
	cancelSub()

	a.logger.Info("✅ Tote stopped cleanly")
	return nil
}
