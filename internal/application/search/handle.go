package search

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Factory builds an engine from the corpus file at path.
type Factory func(ctx context.Context, path string) (*Engine, error)

// PathResolver picks the corpus file to open on first use.
type PathResolver func() (string, error)

// Handle owns the process-wide engine. The first call to Engine builds it
// once; a failed first build is remembered until a Reload succeeds. Reload
// swaps in a new engine while in-flight searches finish on the old one.
type Handle struct {
	resolve PathResolver
	build   Factory
	logger  logging.Logger

	once    sync.Once
	initErr error
	current atomic.Pointer[Engine]
	reloads singleflight.Group
}

// NewHandle returns a handle that has not loaded anything yet.
func NewHandle(resolve PathResolver, build Factory, logger logging.Logger) *Handle {
	return &Handle{resolve: resolve, build: build, logger: logging.OrNop(logger)}
}

// NewStaticHandle wraps an already built engine.
func NewStaticHandle(e *Engine) *Handle {
	h := &Handle{logger: logging.NewNopLogger()}
	h.current.Store(e)
	h.once.Do(func() {})
	return h
}

// Engine returns the current engine, building it on first use.
func (h *Handle) Engine(ctx context.Context) (*Engine, error) {
	h.once.Do(func() { h.initErr = h.open(context.WithoutCancel(ctx)) })
	if e := h.current.Load(); e != nil {
		return e, nil
	}
	return nil, h.initErr
}

// Current returns the loaded engine or nil without triggering a load.
func (h *Handle) Current() *Engine { return h.current.Load() }

func (h *Handle) open(ctx context.Context) error {
	if h.resolve == nil || h.build == nil {
		return apperrors.New(apperrors.CodeUnavailable, "search engine is not configured")
	}
	if h.current.Load() != nil {
		return nil
	}
	path, err := h.resolve()
	if err != nil {
		h.logger.Error("resolve corpus file failed", logging.Err(err))
		return err
	}
	e, err := h.build(ctx, path)
	if err != nil {
		h.logger.Error("search engine initialization failed", logging.String("path", path), logging.Err(err))
		return err
	}
	if !h.current.CompareAndSwap(nil, e) {
		h.logger.Info("engine already replaced by reload, discarding initial build", logging.String("path", path))
		return nil
	}
	h.logger.Info("search engine ready", logging.String("path", path), logging.Int("patents", e.Corpus().Len()))
	return nil
}

// Reload builds an engine from path and makes it current. Concurrent reloads
// of the same path share one build. On failure the previous engine stays.
func (h *Handle) Reload(ctx context.Context, path string) (*Engine, error) {
	if h.build == nil {
		return nil, apperrors.New(apperrors.CodeUnavailable, "search engine is not configured")
	}
	v, err, shared := h.reloads.Do(path, func() (interface{}, error) {
		e, err := h.build(ctx, path)
		if err != nil {
			return nil, err
		}
		h.current.Store(e)
		return e, nil
	})
	if err != nil {
		h.logger.Warn("reload failed, keeping previous engine", logging.String("path", path), logging.Err(err))
		return nil, err
	}
	e := v.(*Engine)
	h.logger.Info("search engine reloaded",
		logging.String("path", path),
		logging.Int("patents", e.Corpus().Len()),
		logging.Bool("shared", shared))
	return e, nil
}
