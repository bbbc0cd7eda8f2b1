package vectorindex

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Index sources reported to the observer.
const (
	SourcePersisted = "persisted"
	SourceBuilt     = "built"
)

// ModelEmbedder is the embedding surface the builder needs.
type ModelEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Locker serializes index builds across processes sharing one Store.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// Observer receives index load and build timings.
type Observer interface {
	ObserveIndex(source string, rows int, elapsed time.Duration)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the builder logger.
func WithBuilderLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logging.OrNop(l).Named("vectorindex") }
}

// WithBatching sets texts per embedding call and concurrent calls.
func WithBatching(batchSize, workers int) BuilderOption {
	return func(b *Builder) {
		if batchSize > 0 {
			b.batchSize = batchSize
		}
		if workers > 0 {
			b.workers = workers
		}
	}
}

// WithLocker serializes index builds across processes.
func WithLocker(l Locker) BuilderOption {
	return func(b *Builder) { b.locker = l }
}

// WithIndexObserver reports every index load or build to o.
func WithIndexObserver(o Observer) BuilderOption {
	return func(b *Builder) { b.observer = o }
}

// Builder loads a persisted index or embeds the corpus and persists it.
type Builder struct {
	store     Store
	embedder  ModelEmbedder
	logger    logging.Logger
	locker    Locker
	observer  Observer
	batchSize int
	workers   int
}

// NewBuilder returns a Builder persisting through store.
func NewBuilder(store Store, embedder ModelEmbedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:     store,
		embedder:  embedder,
		logger:    logging.NewNopLogger(),
		batchSize: 64,
		workers:   4,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadOrBuild returns the persisted index when it matches corpus and the
// current model; otherwise it embeds the corpus and persists the result. A
// persisted index whose row count, corpus digest or model differs is treated
// as corrupt and rebuilt. Persist failures are logged, not returned.
func (b *Builder) LoadOrBuild(ctx context.Context, corpus *patent.Corpus) (*Index, error) {
	if ix, err := b.load(ctx, corpus); err != nil || ix != nil {
		return ix, err
	}

	if b.locker != nil {
		release, err := b.locker.Acquire(ctx, "index:"+b.store.Location())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				b.logger.Warn("release index lock", logging.Err(err))
			}
		}()
		// Another replica may have finished the build while we waited.
		if ix, err := b.load(ctx, corpus); err != nil || ix != nil {
			return ix, err
		}
	}

	ix, err := b.build(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if err := b.persist(ctx, corpus, ix); err != nil {
		b.logger.Error("persist vector index", logging.String("location", b.store.Location()), logging.Err(err))
	}
	return ix, nil
}

// Rebuild embeds the corpus unconditionally and persists the result,
// returning persist failures.
func (b *Builder) Rebuild(ctx context.Context, corpus *patent.Corpus) (*Index, error) {
	if b.locker != nil {
		release, err := b.locker.Acquire(ctx, "index:"+b.store.Location())
		if err != nil {
			return nil, err
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}
	ix, err := b.build(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if err := b.persist(ctx, corpus, ix); err != nil {
		return nil, err
	}
	return ix, nil
}

func (b *Builder) load(ctx context.Context, corpus *patent.Corpus) (*Index, error) {
	start := time.Now()
	rc, err := b.store.Open(ctx)
	if errors.Is(err, ErrNotExist) {
		b.logger.Info("no persisted vector index", logging.String("location", b.store.Location()))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	snap, err := Decode(rc, corpus.Len())
	if err != nil {
		b.logger.Warn("persisted vector index unreadable, rebuilding",
			logging.String("location", b.store.Location()), logging.Err(err))
		return nil, nil
	}

	switch {
	case snap.Digest != CorpusDigest(corpus.DocNumbers()):
		b.logger.Warn("persisted vector index belongs to another corpus, rebuilding")
		return nil, nil
	case snap.ModelID != b.embedder.ModelID():
		b.logger.Warn("persisted vector index built with another model, rebuilding",
			logging.String("persisted_model", snap.ModelID), logging.String("model", b.embedder.ModelID()))
		return nil, nil
	}

	b.logger.Info("loaded persisted vector index",
		logging.String("location", b.store.Location()),
		logging.Int("rows", snap.Index.Len()),
		logging.Int("dim", snap.Index.Dim()),
		logging.Duration("took", time.Since(start)))
	b.observe(SourcePersisted, snap.Index.Len(), time.Since(start))
	return snap.Index, nil
}

func (b *Builder) build(ctx context.Context, corpus *patent.Corpus) (*Index, error) {
	start := time.Now()
	n := corpus.Len()
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		texts[i] = DocumentText(corpus.Record(i))
	}
	b.logger.Info("embedding corpus", logging.Int("records", n), logging.Int("batch_size", b.batchSize))

	vectors := make([][]float32, n)
	if n > 0 {
		if err := b.embedAll(ctx, texts, vectors); err != nil {
			return nil, err
		}
	}

	ix, err := New(vectors)
	if err != nil {
		return nil, err
	}
	b.logger.Info("vector index built", logging.Int("rows", ix.Len()), logging.Int("dim", ix.Dim()),
		logging.Duration("took", time.Since(start)))
	b.observe(SourceBuilt, ix.Len(), time.Since(start))
	return ix, nil
}

// embedAll fills vectors batch by batch on a bounded worker pool. Each batch
// writes only its own row range, so row order follows corpus order.
func (b *Builder) embedAll(ctx context.Context, texts []string, vectors [][]float32) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexBuild, "create embedding pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for lo := 0; lo < len(texts); lo += b.batchSize {
		lo := lo
		hi := min(lo+b.batchSize, len(texts))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vecs, err := b.embedder.EmbedTexts(ctx, texts[lo:hi])
			if err != nil {
				fail(err)
				return
			}
			copy(vectors[lo:hi], vecs)
		})
		if submitErr != nil {
			wg.Done()
			fail(apperrors.Wrap(submitErr, apperrors.CodeIndexBuild, "submit embedding batch"))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (b *Builder) persist(ctx context.Context, corpus *patent.Corpus, ix *Index) error {
	snap := &Snapshot{ModelID: b.embedder.ModelID(), Digest: CorpusDigest(corpus.DocNumbers()), Index: ix}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(Encode(pw, snap))
	}()
	err := b.store.Save(ctx, pr, EncodedSize(snap))
	pr.CloseWithError(err)
	if err != nil {
		return err
	}
	b.logger.Info("persisted vector index", logging.String("location", b.store.Location()))
	return nil
}

func (b *Builder) observe(source string, rows int, d time.Duration) {
	if b.observer != nil {
		b.observer.ObserveIndex(source, rows, d)
	}
}
