package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults for the ingestion engine. The HTTP limits mirror what a
// desktop link collector can get away with: generous enough for real
// pages, small enough to never fill a laptop disk.
const (
	DefaultMaxHTMLBytes  = 5 << 20 // 5 MiB per page
	DefaultMaxAssetBytes = 2 << 20 // 2 MiB per icon/image
	DefaultFetchPermits  = 8
	DefaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:7333"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DataDir  string // holds catalog.json (default: <user config dir>/tote)
	CacheDir string // holds cache/<bookmark-id>/ entries (default: DataDir/cache)
	SeedFile string // optional categories.yaml overriding the built-in defaults

	ConnectTimeout time.Duration // TCP connect timeout per request (default: 5s)
	FetchTimeout   time.Duration // total wall-clock per HTTP request (default: 15s)
	IngestTimeout  time.Duration // total budget per ingestion incl. assets (default: 30s)
	FetchPermits   int           // global in-flight fetch cap (default: 8)
	MaxHTMLBytes   int64         // page body cap
	MaxAssetBytes  int64         // per-asset body cap
	UserAgent      string

	JanitorInterval time.Duration // cache sweep interval (default: 1h)
}

func Load() *Config {
	dataDir := getenv("TOTE_DATA_DIR", defaultDataDir())

	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("TOTE_LISTEN_ADDR", "127.0.0.1:7333"),
		ShutdownTimeout: mustDuration("TOTE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("TOTE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TOTE_PRETTY_LOG", true),

		// Storage
		DataDir:  dataDir,
		CacheDir: getenv("TOTE_CACHE_DIR", filepath.Join(dataDir, "cache")),
		SeedFile: getenv("TOTE_SEED_FILE", ""), // optional, empty = built-in defaults

		// Ingestion
		ConnectTimeout: mustDuration("TOTE_CONNECT_TIMEOUT", 5*time.Second),
		FetchTimeout:   mustDuration("TOTE_FETCH_TIMEOUT", 15*time.Second),
		IngestTimeout:  mustDuration("TOTE_INGEST_TIMEOUT", 30*time.Second),
		FetchPermits:   getenvInt("TOTE_FETCH_PERMITS", DefaultFetchPermits),
		MaxHTMLBytes:   getenvInt64("TOTE_MAX_HTML_BYTES", DefaultMaxHTMLBytes),
		MaxAssetBytes:  getenvInt64("TOTE_MAX_ASSET_BYTES", DefaultMaxAssetBytes),
		UserAgent:      getenv("TOTE_USER_AGENT", DefaultUserAgent),

		// Maintenance
		JanitorInterval: mustDuration("TOTE_JANITOR_INTERVAL", time.Hour),
	}

	return cfg
}

// defaultDataDir resolves the per-user data directory. Falls back to the
// working directory when the platform dir cannot be determined.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "tote-data"
	}
	return filepath.Join(base, "tote")
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
