package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/corpusgest/internal/sink"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth
	APIKey      string
	CORSOrigins string

	// Sinks. At least one must be set.
	PathstoreURL    string
	PathstoreAPIKey string
	PathstorePrefix string
	SQLitePath      string
	DatabaseURL     string
	TablePrefix     string
	SearchIndex     string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentStore int
	StoreBatchSize     int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Indexing defaults, overridable per corpus in the manifest
	CrumbLanguage string
	SequenceScope string

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey:      os.Getenv("CORPUSGEST_API_KEY"),
		CORSOrigins: os.Getenv("CORS_ORIGINS"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
		PathstorePrefix: envOr("PATHSTORE_PREFIX", "corpora"),
		SQLitePath:      os.Getenv("SQLITE_PATH"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TablePrefix:     os.Getenv("TABLE_PREFIX"),
		SearchIndex:     os.Getenv("SEARCH_INDEX"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 10),
		StoreBatchSize:     envInt("STORE_BATCH_SIZE", 200),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		CrumbLanguage: envOr("CRUMB_LANGUAGE", "en"),
		SequenceScope: envOr("SEQUENCE_SCOPE", ScopeSiblings),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 10
	}
	if cfg.StoreBatchSize <= 0 {
		cfg.StoreBatchSize = 200
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks what the CLI needs: somewhere to write records.
func (c Config) Validate() error {
	if c.PathstoreURL == "" && c.SQLitePath == "" && c.DatabaseURL == "" && c.SearchIndex == "" {
		return fmt.Errorf("one of PATHSTORE_URL, SQLITE_PATH, DATABASE_URL or SEARCH_INDEX is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required with PATHSTORE_URL")
	}
	if c.SequenceScope != ScopeSiblings && c.SequenceScope != ScopeCorpus {
		return fmt.Errorf("SEQUENCE_SCOPE must be %q or %q", ScopeSiblings, ScopeCorpus)
	}
	return nil
}

// ValidateServer additionally requires the import API key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CORPUSGEST_API_KEY is required")
	}
	return nil
}

// SinkOptions selects the stores records are written to.
func (c Config) SinkOptions() sink.Options {
	return sink.Options{
		PathstoreURL:    c.PathstoreURL,
		PathstoreAPIKey: c.PathstoreAPIKey,
		PathstorePrefix: c.PathstorePrefix,
		MaxConcurrent:   c.MaxConcurrentStore,
		SQLitePath:      c.SQLitePath,
		DatabaseURL:     c.DatabaseURL,
		TablePrefix:     c.TablePrefix,
		SearchIndex:     c.SearchIndex,
	}
}

// Origins splits CORSOrigins on commas, dropping blanks.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
