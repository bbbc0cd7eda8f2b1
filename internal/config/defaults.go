package config

import (
	"time"

	"github.com/spf13/viper"
)

// Embedding backends.
const (
	BackendHashing = "hashing"
	BackendOpenAI  = "openai"
	BackendOllama  = "ollama"
)

// Index stores.
const (
	IndexStoreFile  = "file"
	IndexStoreMinIO = "minio"
)

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8000
	DefaultServerMode      = "release"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDataDir       = "./data"
	DefaultWatchDebounce = 2 * time.Second

	DefaultEmbeddingBackend   = BackendHashing
	DefaultEmbeddingDimension = 768
	DefaultEmbeddingBatchSize = 64
	DefaultEmbeddingWorkers   = 4
	DefaultEmbeddingBurst     = 1
	DefaultBreakerFailures    = 5
	DefaultBreakerOpenFor     = 30 * time.Second

	DefaultCandidateWindow     = 100
	DefaultClaimMatchThreshold = 0.5
	DefaultAnnotationWorkers   = 8

	DefaultIndexStore = IndexStoreFile

	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisKeyPrefix    = "patentsearch:"
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisLockTTL      = 10 * time.Minute
	DefaultRedisLockRetry    = 2 * time.Second
	DefaultRedisLockAttempts = 300

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "patentsearch"
	DefaultMetricsPath      = "/metrics"
)

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	// ── Data ──────────────────────────────────────────────────────────────────
	if cfg.Data.Dir == "" && cfg.Data.File == "" {
		cfg.Data.Dir = DefaultDataDir
	}
	if cfg.Data.WatchDebounce == 0 {
		cfg.Data.WatchDebounce = DefaultWatchDebounce
	}

	// ── Embedding ─────────────────────────────────────────────────────────────
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = DefaultEmbeddingBackend
	}
	if cfg.Embedding.Dimension == 0 && cfg.Embedding.Backend == BackendHashing {
		cfg.Embedding.Dimension = DefaultEmbeddingDimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultEmbeddingBatchSize
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = DefaultEmbeddingWorkers
	}
	if cfg.Embedding.Burst == 0 {
		cfg.Embedding.Burst = DefaultEmbeddingBurst
	}
	if cfg.Embedding.BreakerFailures == 0 {
		cfg.Embedding.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.Embedding.BreakerOpenFor == 0 {
		cfg.Embedding.BreakerOpenFor = DefaultBreakerOpenFor
	}

	// ── Search ────────────────────────────────────────────────────────────────
	if cfg.Search.CandidateWindow == 0 {
		cfg.Search.CandidateWindow = DefaultCandidateWindow
	}
	if cfg.Search.ClaimMatchThreshold == 0 {
		cfg.Search.ClaimMatchThreshold = DefaultClaimMatchThreshold
	}
	if cfg.Search.AnnotationWorkers == 0 {
		cfg.Search.AnnotationWorkers = DefaultAnnotationWorkers
	}

	// ── Index ─────────────────────────────────────────────────────────────────
	if cfg.Index.Store == "" {
		cfg.Index.Store = DefaultIndexStore
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultRedisLockTTL
	}
	if cfg.Redis.LockRetry == 0 {
		cfg.Redis.LockRetry = DefaultRedisLockRetry
	}
	if cfg.Redis.LockAttempts == 0 {
		cfg.Redis.LockAttempts = DefaultRedisLockAttempts
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// registerKeys declares every configuration key on v so that environment
// variables override keys absent from the config file. Viper only consults
// AutomaticEnv for keys it already knows about during Unmarshal.
func registerKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port", "server.mode", "server.read_timeout",
		"server.write_timeout", "server.request_timeout", "server.shutdown_timeout", "server.cors_origins",
		"data.dir", "data.file", "data.watch", "data.watch_debounce",
		"embedding.backend", "embedding.base_url", "embedding.model", "embedding.api_token",
		"embedding.dimension", "embedding.batch_size", "embedding.workers",
		"embedding.requests_per_second", "embedding.burst",
		"embedding.breaker_failures", "embedding.breaker_open_for",
		"search.candidate_window", "search.claim_match_threshold", "search.annotation_workers",
		"index.store", "index.path", "index.object_key", "index.lock",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
		"minio.use_ssl", "minio.region",
		"redis.addr", "redis.password", "redis.db", "redis.key_prefix", "redis.dial_timeout",
		"redis.lock_ttl", "redis.lock_retry", "redis.lock_attempts",
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
		"metrics.enabled", "metrics.namespace", "metrics.path",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
