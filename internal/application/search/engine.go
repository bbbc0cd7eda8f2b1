// Package search runs the patent search scenarios over an in-memory corpus
// and its vector index.
package search

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/features"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

const (
	DefaultCandidateWindow     = 100
	DefaultClaimMatchThreshold = 0.5
	DefaultAnnotationWorkers   = 8
)

// Embedder embeds both single queries and batches of claims.
type Embedder interface {
	vectorindex.QueryEmbedder
	features.Embedder
}

// Observer receives one call per finished search.
type Observer interface {
	ObserveSearch(scenario string, err error, results int, elapsed time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. A nil logger discards output.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithObserver reports every finished search to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithExtractor replaces the regex feature heuristics.
func WithExtractor(x features.Extractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithCandidateWindow sets how many ranked candidates enter the filter stage.
func WithCandidateWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithClaimMatchThreshold sets the cosine floor for matched claims.
func WithClaimMatchThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithAnnotationWorkers bounds concurrent per-result annotation.
func WithAnnotationWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Engine answers scenario searches. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	corpus    *patent.Corpus
	index     *vectorindex.Index
	embedder  Embedder
	extractor features.Extractor
	logger    logging.Logger
	observer  Observer
	window    int
	threshold float64
	workers   int
}

// NewEngine pairs a corpus with the index built from it. Row i of the index
// must be the embedding of record i.
func NewEngine(corpus *patent.Corpus, index *vectorindex.Index, embedder Embedder, opts ...Option) (*Engine, error) {
	if corpus == nil || index == nil || embedder == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "search engine requires a corpus, an index and an embedder")
	}
	if index.Len() != corpus.Len() {
		return nil, apperrors.Newf(apperrors.CodeIndexCorrupt,
			"index has %d rows but corpus has %d records", index.Len(), corpus.Len())
	}
	e := &Engine{
		corpus:    corpus,
		index:     index,
		embedder:  embedder,
		extractor: features.NewRegexExtractor(),
		logger:    logging.NewNopLogger(),
		window:    DefaultCandidateWindow,
		threshold: DefaultClaimMatchThreshold,
		workers:   DefaultAnnotationWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Corpus returns the corpus the engine searches.
func (e *Engine) Corpus() *patent.Corpus { return e.corpus }

// GetPatent looks a record up by doc number, exact first, then normalized.
func (e *Engine) GetPatent(docNumber string) (*patent.Record, bool) {
	r, _, ok := e.corpus.GetByID(docNumber)
	return r, ok
}

// Stats summarizes the loaded corpus.
func (e *Engine) Stats() patent.Stats { return e.corpus.Stats() }

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

// Invalidity finds prior art published on or before the target date.
func (e *Engine) Invalidity(ctx context.Context, req InvalidityRequest) (res []InvalidityResult, err error) {
	start := time.Now()
	defer func() { e.track(ScenarioInvalidity, start, len(res), err) }()
	if err = req.normalize(); err != nil {
		return nil, err
	}

	cands, query, err := e.index.RankText(ctx, e.embedder, req.QueryClaims, e.window)
	if err != nil {
		return nil, err
	}
	cands = ApplyFilters(e.corpus, cands,
		ClassificationFilter(req.Classification),
		KeywordFilter(req.Keywords),
		TitleFilter(req.TitleSearch),
		DateFilter("", req.TargetDate),
	)
	cands = truncate(cands, *req.TopK)

	return annotate(ctx, e, cands, func(ctx context.Context, _ int, c vectorindex.Candidate, r *patent.Record) (InvalidityResult, error) {
		matched, err := e.extractor.MatchedClaims(ctx, e.embedder, query, r.Claims, e.threshold)
		if err != nil {
			return InvalidityResult{}, err
		}
		return InvalidityResult{
			Summary:           summarize(r, c.Score),
			MatchedClaims:     matched,
			IndependentClaims: nonNil(e.extractor.IndependentClaims(r.Claims)),
			ClaimsCount:       len(r.Claims),
		}, nil
	})
}

// Infringement finds patents similar to the caller's claims, scored at or
// above the requested similarity.
//
// The caller's own patent is removed after top_k truncation, so a hit on it
// shortens the result list by one.
func (e *Engine) Infringement(ctx context.Context, req InfringementRequest) (res []InfringementResult, err error) {
	start := time.Now()
	defer func() { e.track(ScenarioInfringement, start, len(res), err) }()
	if err = req.normalize(); err != nil {
		return nil, err
	}

	myFeatures := e.extractor.ExtractFeatures(req.MyClaims)
	cands, query, err := e.index.RankText(ctx, e.embedder, req.MyClaims, e.window)
	if err != nil {
		return nil, err
	}
	cands = ApplyFilters(e.corpus, cands,
		ClassificationFilter(req.Classification),
		DateFilter(req.DateFrom, req.DateTo),
		KeywordFilter(req.Keywords),
		TitleFilter(req.TitleSearch),
		MinScoreFilter(*req.MinSimilarity),
	)
	cands = truncate(cands, *req.TopK)
	cands = ApplyFilters(e.corpus, cands, ExcludeDocFilter(req.MyDocNumber))

	return annotate(ctx, e, cands, func(ctx context.Context, _ int, c vectorindex.Candidate, r *patent.Record) (InfringementResult, error) {
		matched, err := e.extractor.MatchedClaims(ctx, e.embedder, query, r.Claims, e.threshold)
		if err != nil {
			return InfringementResult{}, err
		}
		return InfringementResult{
			Summary:             summarize(r, c.Score),
			RiskLevel:           AssessRisk(c.Score),
			MatchedClaims:       matched,
			OverlappingFeatures: nonNil(e.extractor.OverlappingFeatures(myFeatures, r)),
		}, nil
	})
}

// Patentability compares an invention disclosure against the corpus. The
// first result is flagged as the closest prior art.
func (e *Engine) Patentability(ctx context.Context, req PatentabilityRequest) (res []PatentabilityResult, err error) {
	start := time.Now()
	defer func() { e.track(ScenarioPatentability, start, len(res), err) }()
	if err = req.normalize(); err != nil {
		return nil, err
	}

	text := req.query()
	cands, query, err := e.index.RankText(ctx, e.embedder, text, e.window)
	if err != nil {
		return nil, err
	}
	cands = ApplyFilters(e.corpus, cands,
		ClassificationFilter(req.Classification),
		KeywordFilter(req.Keywords),
		TitleFilter(req.TitleSearch),
	)
	cands = truncate(cands, *req.TopK)

	return annotate(ctx, e, cands, func(ctx context.Context, i int, c vectorindex.Candidate, r *patent.Record) (PatentabilityResult, error) {
		matched, err := e.extractor.MatchedClaims(ctx, e.embedder, query, r.Claims, e.threshold)
		if err != nil {
			return PatentabilityResult{}, err
		}
		return PatentabilityResult{
			Summary:           summarize(r, c.Score),
			NoveltyAssessment: AssessNovelty(c.Score),
			ClosestPriorArt:   i == 0,
			KeyDifferences:    nonNil(e.extractor.KeyDifferences(text, r)),
			MatchedClaims:     matched,
			TechnicalField:    TechnicalField(r.Classification),
		}, nil
	})
}

// PatentID uses a corpus record as the query. An unknown doc number yields a
// nil source and no results without an error.
func (e *Engine) PatentID(ctx context.Context, req PatentIDRequest) (source *patent.Record, res []PatentIDResult, err error) {
	start := time.Now()
	defer func() { e.track(ScenarioPatentID, start, len(res), err) }()
	if err = req.normalize(); err != nil {
		return nil, nil, err
	}

	source, _, ok := e.corpus.GetByID(req.DocNumber)
	if !ok {
		e.logger.Warn("source patent not found", logging.DocNumber(req.DocNumber))
		return nil, []PatentIDResult{}, nil
	}
	sourcePos, _ := e.corpus.Position(source.DocNumber)

	text := patentIDQuery(source)
	cands, query, err := e.index.RankText(ctx, e.embedder, text, e.window)
	if err != nil {
		return nil, nil, err
	}
	cands = ApplyFilters(e.corpus, cands,
		ClassificationFilter(req.Classification),
		ExcludePositionFilter(sourcePos),
	)
	cands = truncate(cands, *req.TopK)

	res, err = annotate(ctx, e, cands, func(ctx context.Context, _ int, c vectorindex.Candidate, r *patent.Record) (PatentIDResult, error) {
		matched, err := e.extractor.MatchedClaims(ctx, e.embedder, query, r.Claims, e.threshold)
		if err != nil {
			return PatentIDResult{}, err
		}
		return PatentIDResult{Summary: summarize(r, c.Score), MatchedClaims: matched}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return source, res, nil
}

// patentIDQuery is the source abstract followed by its first five claims.
func patentIDQuery(r *patent.Record) string {
	return r.Abstract + " " + strings.Join(r.LeadingClaims(patentIDQueryClaims), " ")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// annotate builds one result per candidate with bounded concurrency. Output
// order matches cands. The first failure cancels the rest and is returned.
func annotate[T any](ctx context.Context, e *Engine, cands []vectorindex.Candidate,
	fn func(ctx context.Context, i int, c vectorindex.Candidate, r *patent.Record) (T, error)) ([]T, error) {
	out := make([]T, len(cands))
	if len(cands) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			v, err := fn(gctx, i, c, e.corpus.Record(c.Position))
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) track(scenario Scenario, start time.Time, results int, err error) {
	elapsed := time.Since(start)
	switch {
	case err != nil && apperrors.IsClientError(apperrors.GetCode(err)):
		e.logger.Warn("search rejected",
			logging.Scenario(string(scenario)),
			logging.Err(err))
	case err != nil:
		e.logger.Error("search failed",
			logging.Scenario(string(scenario)),
			logging.Duration("elapsed", elapsed),
			logging.Err(err))
	default:
		e.logger.Info("search complete",
			logging.Scenario(string(scenario)),
			logging.Int("results", results),
			logging.Duration("elapsed", elapsed))
	}
	if e.observer != nil {
		e.observer.ObserveSearch(string(scenario), err, results, elapsed)
	}
}
