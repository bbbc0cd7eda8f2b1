package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
)

// Config is the root configuration for the patent search service.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Data      DataConfig        `mapstructure:"data"`
	Embedding EmbeddingConfig   `mapstructure:"embedding"`
	Search    SearchConfig      `mapstructure:"search"`
	Index     IndexConfig       `mapstructure:"index"`
	MinIO     MinIOConfig       `mapstructure:"minio"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Log       logging.LogConfig `mapstructure:"log"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins lists browser origins allowed to call the API. "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig locates the corpus. When File is empty the newest
// patents_cleaned_*.json under Dir is used.
type DataConfig struct {
	Dir   string `mapstructure:"dir"`
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
	// WatchDebounce coalesces bursts of file events into one reload.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	// Backend is one of "hashing", "openai" or "ollama".
	Backend   string `mapstructure:"backend"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	APIToken  string `mapstructure:"api_token"`
	Dimension int    `mapstructure:"dimension"`

	BatchSize int `mapstructure:"batch_size"`
	Workers   int `mapstructure:"workers"`

	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerOpenFor    time.Duration `mapstructure:"breaker_open_for"`
}

// SearchConfig holds engine policy knobs.
type SearchConfig struct {
	CandidateWindow     int     `mapstructure:"candidate_window"`
	ClaimMatchThreshold float64 `mapstructure:"claim_match_threshold"`
	AnnotationWorkers   int     `mapstructure:"annotation_workers"`
}

// IndexConfig selects where the persisted vector index lives.
type IndexConfig struct {
	// Store is "file" or "minio".
	Store string `mapstructure:"store"`
	// Path overrides the file location; empty derives it from the corpus file.
	Path string `mapstructure:"path"`
	// ObjectKey overrides the object name in MinIO.
	ObjectKey string `mapstructure:"object_key"`
	// Lock serializes index builds across replicas through Redis.
	Lock bool `mapstructure:"lock"`
}

// MinIOConfig configures the object store holding persisted indexes.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// RedisConfig configures the Redis connection used for build locks.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	LockRetry    time.Duration `mapstructure:"lock_retry"`
	LockAttempts int           `mapstructure:"lock_attempts"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Validate checks cross-field constraints. It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Data.Dir == "" && c.Data.File == "" {
		return fmt.Errorf("config: one of data.dir or data.file is required")
	}

	switch c.Embedding.Backend {
	case BackendHashing:
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("config: embedding.dimension must be positive for the hashing backend")
		}
	case BackendOpenAI, BackendOllama:
		if c.Embedding.Model == "" {
			return fmt.Errorf("config: embedding.model is required for backend %q", c.Embedding.Backend)
		}
	default:
		return fmt.Errorf("config: unknown embedding.backend %q", c.Embedding.Backend)
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.Workers <= 0 {
		return fmt.Errorf("config: embedding.batch_size and embedding.workers must be positive")
	}

	if c.Search.CandidateWindow <= 0 {
		return fmt.Errorf("config: search.candidate_window must be positive")
	}
	if c.Search.ClaimMatchThreshold < -1 || c.Search.ClaimMatchThreshold > 1 {
		return fmt.Errorf("config: search.claim_match_threshold must lie in [-1, 1]")
	}

	switch c.Index.Store {
	case IndexStoreFile:
	case IndexStoreMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when index.store is minio")
		}
	default:
		return fmt.Errorf("config: unknown index.store %q", c.Index.Store)
	}
	if c.Index.Lock && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when index.lock is enabled")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path must start with '/'")
	}
	return nil
}
