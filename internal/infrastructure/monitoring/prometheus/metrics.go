package prometheus

import (
	"strconv"
	"time"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Bucket sets tuned per concern.
var (
	HTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	SearchDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	EmbeddingDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	IndexDurationBuckets     = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
	ResultCountBuckets       = []float64{0, 1, 5, 10, 20, 50, 100}
)

// AppMetrics holds every metric the service exports. It satisfies the
// observer interfaces of the search engine, the embedding provider and the
// index builder.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	SearchRequestsTotal CounterVec
	SearchDuration      HistogramVec
	SearchResultCount   HistogramVec

	EmbeddingDuration HistogramVec
	EmbeddingTexts    CounterVec
	EmbeddingErrors   CounterVec

	IndexLoadsTotal CounterVec
	IndexDuration   HistogramVec
	IndexRows       GaugeVec

	CorpusPatents GaugeVec
}

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", HTTPDurationBuckets, "method", "path"),

		SearchRequestsTotal: collector.RegisterCounter("search_requests_total", "Total searches by scenario and outcome", "scenario", "status"),
		SearchDuration:      collector.RegisterHistogram("search_duration_seconds", "Search latency by scenario", SearchDurationBuckets, "scenario"),
		SearchResultCount:   collector.RegisterHistogram("search_result_count", "Results returned per successful search", ResultCountBuckets, "scenario"),

		EmbeddingDuration: collector.RegisterHistogram("embedding_duration_seconds", "Embedding model load and inference latency", EmbeddingDurationBuckets, "operation"),
		EmbeddingTexts:    collector.RegisterCounter("embedding_texts_total", "Texts sent to the embedding model", "operation"),
		EmbeddingErrors:   collector.RegisterCounter("embedding_errors_total", "Failed embedding operations", "operation"),

		IndexLoadsTotal: collector.RegisterCounter("index_loads_total", "Vector index loads by source", "source"),
		IndexDuration:   collector.RegisterHistogram("index_load_duration_seconds", "Time to load or build the vector index", IndexDurationBuckets, "source"),
		IndexRows:       collector.RegisterGauge("index_rows", "Rows in the active vector index"),

		CorpusPatents: collector.RegisterGauge("corpus_patents", "Patents in the active corpus"),
	}
}

// ObserveSearch records one scenario search. The status label is "ok" or the
// application error code.
func (m *AppMetrics) ObserveSearch(scenario string, err error, results int, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = apperrors.GetCode(err).String()
	}
	m.SearchRequestsTotal.WithLabelValues(scenario, status).Inc()
	m.SearchDuration.WithLabelValues(scenario).Observe(elapsed.Seconds())
	if err == nil {
		m.SearchResultCount.WithLabelValues(scenario).Observe(float64(results))
	}
}

// ObserveEmbedding records one embedding call. Failed calls also count as errors.
func (m *AppMetrics) ObserveEmbedding(operation string, texts int, elapsed time.Duration, err error) {
	m.EmbeddingDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if texts > 0 {
		m.EmbeddingTexts.WithLabelValues(operation).Add(float64(texts))
	}
	if err != nil {
		m.EmbeddingErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveIndex records an index load from source, either the store or a fresh build.
func (m *AppMetrics) ObserveIndex(source string, rows int, elapsed time.Duration) {
	m.IndexLoadsTotal.WithLabelValues(source).Inc()
	m.IndexDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	m.IndexRows.WithLabelValues().Set(float64(rows))
}

// RecordHTTPRequest records one HTTP request. path should be the route
// template so label cardinality stays bounded.
func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// SetCorpusSize reports the number of patents in the loaded corpus.
func (m *AppMetrics) SetCorpusSize(n int) {
	m.CorpusPatents.WithLabelValues().Set(float64(n))
}
