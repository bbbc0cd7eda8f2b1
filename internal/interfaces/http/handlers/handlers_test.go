package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/embedding/hashing"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/embedding"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixtureRecords() []patent.Record {
	many := make([]string, 12)
	for i := range many {
		many[i] = "claim text"
	}
	return []patent.Record{
		{DocNumber: "US1001", Title: "Tire sensor", Abstract: "A tire pressure sensor.",
			Claims: []string{"1. A tire comprising a pressure sensor."}, Classification: "B60C23/04", PublicationDate: "2020-01-01"},
		{DocNumber: "US1002", Title: "Rolling bearing", Abstract: "A bearing with rollers.",
			Claims: many, Classification: "F16C33/00", PublicationDate: "2021-05-01"},
		{DocNumber: "US1003", Title: "Wheel hub", Abstract: "A wheel hub assembly.",
			Claims: []string{"1. A wheel."}, Classification: "B60B27/00", PublicationDate: "2019-06-30"},
	}
}

func newTestHandle(t *testing.T) (*search.Handle, *patent.Corpus) {
	t.Helper()
	corpus, err := patent.NewCorpus(fixtureRecords())
	require.NoError(t, err)

	emb, err := hashing.New(64)
	require.NoError(t, err)
	provider := embedding.NewProvider(emb.ModelID(), embedding.Static(emb))

	texts := make([]string, corpus.Len())
	for i := range texts {
		texts[i] = vectorindex.DocumentText(corpus.Record(i))
	}
	vecs, err := provider.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	ix, err := vectorindex.New(vecs)
	require.NoError(t, err)

	e, err := search.NewEngine(corpus, ix, provider)
	require.NoError(t, err)
	return search.NewStaticHandle(e), corpus
}

func do(r http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func docNumbers(t *testing.T, body map[string]any) []string {
	t.Helper()
	results, ok := body["results"].([]any)
	require.True(t, ok, "results must be an array")
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.(map[string]any)["doc_number"].(string)
	}
	return docs
}
