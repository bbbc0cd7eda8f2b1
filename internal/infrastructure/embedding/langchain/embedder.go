// Package langchain adapts remote embedding services (OpenAI-compatible
// endpoints and Ollama) through langchaingo. Calls are rate limited on the
// client side and pass through a circuit breaker; nothing is retried.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/embedding"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Supported backends.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// probeText is embedded once at load time to verify the service and learn the
// vector dimension.
const probeText = "patent embedding probe"

// Config describes one remote embedding model.
type Config struct {
	Backend   string
	BaseURL   string
	Model     string
	Token     string
	BatchSize int

	// RequestsPerSecond caps outgoing batch requests; zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	// BreakerFailures consecutive failures open the breaker for BreakerOpenFor.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// ModelID names the backend and model, e.g. "ollama:nomic-embed-text".
func (c Config) ModelID() string {
	return c.Backend + ":" + c.Model
}

// Embedder is a remote embedding model behind a breaker and a rate limiter.
type Embedder struct {
	inner     embeddings.Embedder
	breaker   *gobreaker.CircuitBreaker[[][]float32]
	limiter   *rate.Limiter
	batchSize int
	modelID   string
	logger    logging.Logger
	dimension int
}

// NewClient builds the langchaingo client for cfg.Backend.
func NewClient(cfg Config) (embeddings.EmbedderClient, error) {
	switch cfg.Backend {
	case BackendOpenAI:
		opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		token := cfg.Token
		if token == "" {
			// Local OpenAI-compatible servers accept any token.
			token = "none"
		}
		opts = append(opts, openai.WithToken(token))
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("langchain: openai client: %w", err)
		}
		return llm, nil
	case BackendOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("langchain: ollama client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("langchain: unsupported backend %q", cfg.Backend)
	}
}

// New wraps client. Use NewClient for the production client.
func New(client embeddings.EmbedderClient, cfg Config, logger logging.Logger) (*Embedder, error) {
	logger = logging.OrNop(logger).Named("embedder").With(logging.String("model", cfg.ModelID()))

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	inner, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain: create embedder: %w", err)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:    "embedding:" + cfg.ModelID(),
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Embedder{
		inner:     inner,
		breaker:   breaker,
		limiter:   limiter,
		batchSize: batchSize,
		modelID:   cfg.ModelID(),
		logger:    logger,
	}, nil
}

// ModelID identifies the remote model.
func (e *Embedder) ModelID() string { return e.modelID }

// Dimension is the vector length observed by Probe, zero before probing.
func (e *Embedder) Dimension() int { return e.dimension }

// Probe embeds a fixed text to check that the service answers and records the
// vector dimension.
func (e *Embedder) Probe(ctx context.Context) error {
	vecs, err := e.EmbedTexts(ctx, []string{probeText})
	if err != nil {
		return err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return apperrors.New(apperrors.CodeEmbeddingUnavailable, "probe returned no vector").WithDetail(e.modelID)
	}
	e.dimension = len(vecs[0])
	e.logger.Info("embedding service ready", logging.Int("dimension", e.dimension))
	return nil
}

// EmbedTexts embeds texts in batches. One rate-limiter token is consumed per
// outgoing batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		batches := (len(texts) + e.batchSize - 1) / e.batchSize
		for i := 0; i < batches; i++ {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	vecs, err := e.breaker.Execute(func() ([][]float32, error) {
		return e.inner.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Wrap(err, apperrors.CodeCircuitOpen, "embedding service circuit open").WithDetail(e.modelID)
		}
		e.logger.Error("embedding request failed", logging.Int("texts", len(texts)), logging.Err(err))
		return nil, apperrors.Wrap(err, apperrors.CodeExternalService, "embedding request failed").WithDetail(e.modelID)
	}
	return vecs, nil
}

// Loader returns an embedding.Loader that connects and probes on first use.
func Loader(cfg Config, logger logging.Logger) embedding.Loader {
	return func(ctx context.Context) (embedding.Embedder, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		e, err := New(client, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := e.Probe(ctx); err != nil {
			return nil, err
		}
		return e, nil
	}
}
