// Package bootstrap wires configuration into a ready search service.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/config"
	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/database/redis"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/embedding/hashing"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/embedding/langchain"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/prometheus"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/storage/minio"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/watcher"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/embedding"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
)

var (
	_ vectorindex.Locker   = (*redis.Locker)(nil)
	_ search.Observer      = (*prometheus.AppMetrics)(nil)
	_ embedding.Observer   = (*prometheus.AppMetrics)(nil)
	_ vectorindex.Observer = (*prometheus.AppMetrics)(nil)
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Provider  *embedding.Provider
	Handle    *search.Handle

	minio   minio.MinIOAPI
	locker  *redis.Locker
	closeFn []func()
}

// New builds every collaborator but loads nothing: the corpus, the index and
// the embedding model are opened on the first search.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	app := &App{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		app.Collector = collector
		app.Metrics = prometheus.NewAppMetrics(collector)
	}

	provider, err := newProvider(cfg.Embedding, logger, app.Metrics)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	app.Provider = provider

	if cfg.Index.Store == config.IndexStoreMinIO {
		api, err := minio.NewClient(cfg.MinIO, logger)
		if err != nil {
			return nil, fmt.Errorf("init minio: %w", err)
		}
		if err := minio.EnsureBucket(ctx, api, cfg.MinIO.Bucket, cfg.MinIO.Region, logger); err != nil {
			return nil, fmt.Errorf("ensure index bucket: %w", err)
		}
		app.minio = api
	}

	if cfg.Index.Lock {
		client, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		app.locker = redis.NewLocker(client,
			redis.WithLockTTL(cfg.Redis.LockTTL),
			redis.WithRetryDelay(cfg.Redis.LockRetry),
			redis.WithRetryCount(cfg.Redis.LockAttempts),
			redis.WithWatchdogInterval(cfg.Redis.LockTTL/3),
			redis.WithLockLogger(logger),
		)
		app.closeFn = append(app.closeFn, func() { _ = client.Close() })
	}

	app.Handle = search.NewHandle(app.ResolveDataFile, app.BuildEngine, logger.Named("search"))
	return app, nil
}

func newProvider(cfg config.EmbeddingConfig, logger logging.Logger, metrics *prometheus.AppMetrics) (*embedding.Provider, error) {
	opts := []embedding.Option{embedding.WithLogger(logger.Named("embedding"))}
	if metrics != nil {
		opts = append(opts, embedding.WithObserver(metrics))
	}

	switch cfg.Backend {
	case config.BackendHashing:
		e, err := hashing.New(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return embedding.NewProvider(e.ModelID(), embedding.Static(e), opts...), nil
	default:
		lc := langchain.Config{
			Backend:           cfg.Backend,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Token:             cfg.APIToken,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			BreakerFailures:   cfg.BreakerFailures,
			BreakerOpenFor:    cfg.BreakerOpenFor,
		}
		return embedding.NewProvider(lc.ModelID(), langchain.Loader(lc, logger.Named("embedding")), opts...), nil
	}
}

// ResolveDataFile returns data.file when set, otherwise the newest cleaned
// corpus file in data.dir.
func (a *App) ResolveDataFile() (string, error) {
	if a.Config.Data.File != "" {
		return a.Config.Data.File, nil
	}
	return patent.LatestDataFile(a.Config.Data.Dir)
}

// IndexStore returns where the index for the corpus at corpusPath is persisted.
func (a *App) IndexStore(corpusPath string) vectorindex.Store {
	path := a.Config.Index.Path
	if path == "" {
		path = vectorindex.DefaultPath(corpusPath)
	}
	if a.minio != nil {
		key := a.Config.Index.ObjectKey
		if key == "" {
			key = filepath.Base(path)
		}
		return minio.NewIndexStore(a.minio, a.Config.MinIO.Bucket, key, a.Logger)
	}
	return vectorindex.NewFileStore(path)
}

func (a *App) builder(corpusPath string) *vectorindex.Builder {
	opts := []vectorindex.BuilderOption{
		vectorindex.WithBuilderLogger(a.Logger),
		vectorindex.WithBatching(a.Config.Embedding.BatchSize, a.Config.Embedding.Workers),
	}
	if a.locker != nil {
		opts = append(opts, vectorindex.WithLocker(a.locker))
	}
	if a.Metrics != nil {
		opts = append(opts, vectorindex.WithIndexObserver(a.Metrics))
	}
	return vectorindex.NewBuilder(a.IndexStore(corpusPath), a.Provider, opts...)
}

// BuildIndex loads the corpus at path and returns its index, re-embedding
// everything when force is set.
func (a *App) BuildIndex(ctx context.Context, path string, force bool) (*patent.Corpus, *vectorindex.Index, error) {
	corpus, err := patent.LoadCorpus(path)
	if err != nil {
		return nil, nil, err
	}
	b := a.builder(path)
	var ix *vectorindex.Index
	if force {
		ix, err = b.Rebuild(ctx, corpus)
	} else {
		ix, err = b.LoadOrBuild(ctx, corpus)
	}
	if err != nil {
		return nil, nil, err
	}
	return corpus, ix, nil
}

// BuildEngine is the search.Factory used by the handle and the watcher.
func (a *App) BuildEngine(ctx context.Context, path string) (*search.Engine, error) {
	corpus, ix, err := a.BuildIndex(ctx, path, false)
	if err != nil {
		return nil, err
	}
	opts := []search.Option{
		search.WithLogger(a.Logger.Named("search")),
		search.WithCandidateWindow(a.Config.Search.CandidateWindow),
		search.WithClaimMatchThreshold(a.Config.Search.ClaimMatchThreshold),
		search.WithAnnotationWorkers(a.Config.Search.AnnotationWorkers),
	}
	if a.Metrics != nil {
		opts = append(opts, search.WithObserver(a.Metrics))
	}
	e, err := search.NewEngine(corpus, ix, a.Provider, opts...)
	if err != nil {
		return nil, err
	}
	if a.Metrics != nil {
		a.Metrics.SetCorpusSize(corpus.Len())
	}
	return e, nil
}

// Watcher returns the data directory watcher, or nil when watching is off or
// the corpus is pinned to a single file.
func (a *App) Watcher() *watcher.Watcher {
	if !a.Config.Data.Watch || a.Config.Data.File != "" {
		return nil
	}
	return watcher.New(a.Config.Data.Dir, a.Config.Data.WatchDebounce, func(ctx context.Context, path string) error {
		_, err := a.Handle.Reload(ctx, path)
		return err
	}, a.Logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFn) - 1; i >= 0; i-- {
		a.closeFn[i]()
	}
}
