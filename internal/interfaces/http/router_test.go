package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/embedding/hashing"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/prometheus"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/embedding"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/handlers"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandle(t *testing.T) *search.Handle {
	t.Helper()
	corpus, err := patent.NewCorpus([]patent.Record{
		{DocNumber: "US1", Title: "Tire", Abstract: "A tire.", Claims: []string{"1. A tire."}, Classification: "B60C"},
		{DocNumber: "US2", Title: "Bearing", Abstract: "A bearing.", Claims: []string{"1. A bearing."}, Classification: "F16C"},
	})
	require.NoError(t, err)
	emb, err := hashing.New(16)
	require.NoError(t, err)
	provider := embedding.NewProvider(emb.ModelID(), embedding.Static(emb))
	vecs, err := provider.EmbedTexts(context.Background(), []string{
		vectorindex.DocumentText(corpus.Record(0)), vectorindex.DocumentText(corpus.Record(1)),
	})
	require.NoError(t, err)
	ix, err := vectorindex.New(vecs)
	require.NoError(t, err)
	e, err := search.NewEngine(corpus, ix, provider)
	require.NoError(t, err)
	return search.NewStaticHandle(e)
}

func newTestRouter(t *testing.T) (*gin.Engine, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "patentsearch"}, nil)
	require.NoError(t, err)
	handle := newHandle(t)
	return NewRouter(RouterConfig{
		SearchHandler:  handlers.NewSearchHandler(handle),
		PatentHandler:  handlers.NewPatentHandler(handle),
		HealthHandler:  handlers.NewHealthHandler("test"),
		Metrics:        prometheus.NewAppMetrics(collector),
		MetricsHandler: collector.Handler(),
		CORSOrigins:    []string{"http://localhost:3000"},
	}), collector
}

func request(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_Routes(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/ready", "", http.StatusOK},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
		{http.MethodGet, "/api/patent/US1", "", http.StatusOK},
		{http.MethodGet, "/api/patent/US9", "", http.StatusNotFound},
		{http.MethodPost, "/api/search/invalidity", `{"query_claims":"tire"}`, http.StatusOK},
		{http.MethodPost, "/api/search/infringement", `{"my_claims":"tire"}`, http.StatusOK},
		{http.MethodPost, "/api/search/patentability", `{"invention_description":"tire"}`, http.StatusOK},
		{http.MethodPost, "/api/search/by-patent-id", `{"doc_number":"US1"}`, http.StatusOK},
		{http.MethodGet, "/api/search/invalidity", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := request(r, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_RecordsMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	request(r, http.MethodPost, "/api/search/invalidity", `{"query_claims":"tire"}`, nil)
	request(r, http.MethodGet, "/api/patent/US1", "", nil)

	out := request(r, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, out, `patentsearch_http_requests_total{method="POST",path="/api/search/invalidity",status="200"} 1`)
	assert.Contains(t, out, `patentsearch_http_requests_total{method="GET",path="/api/patent/:doc_number",status="200"} 1`)
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(r, http.MethodOptions, "/api/search/invalidity", "", http.Header{
		"Origin":                        {"http://localhost:3000"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NilHandlers(t *testing.T) {
	var r *gin.Engine
	require.NotPanics(t, func() { r = NewRouter(RouterConfig{}) })

	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/metrics", "", nil).Code)
}
