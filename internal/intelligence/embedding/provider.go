// Package embedding turns text into dense vectors. The Provider defers model
// construction until the first call and guards it with a once-only cell, so
// concurrent first requests share a single model load.
package embedding

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Embedder converts texts to vectors, one per input and in input order.
// Implementations must be safe for concurrent use and deterministic for a
// fixed model version.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Loader constructs the underlying model. It runs at most once per Provider.
type Loader func(ctx context.Context) (Embedder, error)

// Static returns a Loader that hands back e without any work.
func Static(e Embedder) Loader {
	return func(context.Context) (Embedder, error) { return e, nil }
}

// Observer receives timing for model loads ("load") and inference ("embed").
type Observer interface {
	ObserveEmbedding(operation string, texts int, elapsed time.Duration, err error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Provider) { p.logger = logging.OrNop(l) }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(p *Provider) { p.observer = o }
}

// Provider is the lazily initialized embedding model shared by the index
// builder and every search.
type Provider struct {
	modelID  string
	load     Loader
	logger   logging.Logger
	observer Observer

	once   sync.Once
	model  Embedder
	err    error
	loaded atomic.Bool
}

// NewProvider returns a Provider for the model named modelID. modelID is
// recorded in persisted indexes; changing it invalidates them.
func NewProvider(modelID string, load Loader, opts ...Option) *Provider {
	p := &Provider{
		modelID: modelID,
		load:    load,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelID names the model version behind this provider.
func (p *Provider) ModelID() string { return p.modelID }

// Loaded reports whether the model has been loaded successfully.
func (p *Provider) Loaded() bool { return p.loaded.Load() }

// Warm forces the model load without embedding anything.
func (p *Provider) Warm(ctx context.Context) error {
	_, err := p.ensure(ctx)
	return err
}

func (p *Provider) ensure(ctx context.Context) (Embedder, error) {
	p.once.Do(func() {
		start := time.Now()
		p.logger.Info("loading embedding model", logging.String("model", p.modelID))

		// A caller's deadline must not poison the shared model for everyone else.
		model, err := p.load(context.WithoutCancel(ctx))
		if err == nil && model == nil {
			err = apperrors.New(apperrors.CodeEmbeddingUnavailable, "loader returned no model")
		}
		p.observe("load", 0, time.Since(start), err)
		if err != nil {
			p.err = apperrors.Wrap(err, apperrors.CodeEmbeddingUnavailable, "embedding model failed to load").
				WithDetail(p.modelID)
			p.logger.Error("embedding model unavailable", logging.String("model", p.modelID), logging.Err(err))
			return
		}
		p.model = model
		p.loaded.Store(true)
		p.logger.Info("embedding model loaded",
			logging.String("model", p.modelID),
			logging.Duration("took", time.Since(start)))
	})
	return p.model, p.err
}

// EmbedTexts embeds texts with the shared model, loading it on first use.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	model, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vecs, err := model.EmbedTexts(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = apperrors.Newf(apperrors.CodeEmbeddingFailed, "model returned %d vectors for %d texts", len(vecs), len(texts))
	}
	p.observe("embed", len(texts), time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embedding inference failed")
	}
	return vecs, nil
}

// EmbedQuery embeds a single text.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *Provider) observe(op string, n int, d time.Duration, err error) {
	if p.observer != nil {
		p.observer.ObserveEmbedding(op, n, d, err)
	}
}
