package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/middleware"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

type fakeHistory struct {
	mu      sync.Mutex
	entries map[string][]search.HistoryEntry
	err     error
}

func (f *fakeHistory) Save(_ context.Context, userID string, entry search.HistoryEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.entries == nil {
		f.entries = map[string][]search.HistoryEntry{}
	}
	f.entries[userID] = append(f.entries[userID], entry)
	return "hist-1", nil
}

type SearchHandlerTestSuite struct {
	suite.Suite
	router  *gin.Engine
	corpus  *patent.Corpus
	history *fakeHistory
}

func (s *SearchHandlerTestSuite) SetupTest() {
	handle, corpus := newTestHandle(s.T())
	s.corpus = corpus
	s.history = &fakeHistory{}
	s.router = gin.New()
	NewSearchHandler(handle, WithHistory(s.history, HeaderUser(middleware.UserIDHeader))).RegisterRoutes(s.router.Group("/api/search"))
}

func (s *SearchHandlerTestSuite) docText(i int) string {
	return vectorindex.DocumentText(s.corpus.Record(i))
}

func (s *SearchHandlerTestSuite) TestInvalidity() {
	w := do(s.router, http.MethodPost, "/api/search/invalidity", map[string]any{"query_claims": s.docText(0)}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := decode(s.T(), w)
	s.Equal(true, body["success"])
	s.Equal("invalidity", body["scenario"])
	s.EqualValues(3, body["total"])
	s.Contains(body, "search_time_ms")
	s.NotContains(body, "source_patent")

	docs := docNumbers(s.T(), body)
	s.Equal("US1001", docs[0])
	first := body["results"].([]any)[0].(map[string]any)
	s.InDelta(1.0, first["similarity_score"], 1e-4)
	s.Contains(first, "independent_claims")
	s.Contains(first, "claims_count")
}

func (s *SearchHandlerTestSuite) TestInvalidity_TargetDate() {
	w := do(s.router, http.MethodPost, "/api/search/invalidity",
		map[string]any{"query_claims": s.docText(0), "target_date": "2020-01-01"}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.ElementsMatch([]string{"US1001", "US1003"}, docNumbers(s.T(), decode(s.T(), w)))
}

func (s *SearchHandlerTestSuite) TestValidationErrors() {
	cases := []struct {
		name string
		path string
		body any
	}{
		{"missing query", "/api/search/invalidity", map[string]any{}},
		{"malformed json", "/api/search/invalidity", "{"},
		{"explicit zero top_k", "/api/search/invalidity", map[string]any{"query_claims": "x", "top_k": 0}},
		{"top_k too large", "/api/search/patentability", map[string]any{"invention_description": "x", "top_k": 500}},
		{"min_similarity out of range", "/api/search/infringement", map[string]any{"my_claims": "x", "min_similarity": 1.5}},
		{"bad date", "/api/search/infringement", map[string]any{"my_claims": "x", "date_from": "01/02/2020"}},
		{"missing doc number", "/api/search/by-patent-id", map[string]any{"doc_number": " "}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := do(s.router, http.MethodPost, tc.path, tc.body, nil)
			s.Equal(http.StatusUnprocessableEntity, w.Code)
			body := decode(s.T(), w)
			s.Equal(false, body["success"])
			s.Equal(apperrors.CodeInvalidParam.String(), body["code"])
		})
	}
}

func (s *SearchHandlerTestSuite) TestInfringement_ExcludesOwnPatent() {
	w := do(s.router, http.MethodPost, "/api/search/infringement", map[string]any{
		"my_claims":      s.docText(0),
		"my_doc_number":  "US1001",
		"min_similarity": 0.99,
	}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Empty(docNumbers(s.T(), body))
	s.EqualValues(0, body["total"])
}

func (s *SearchHandlerTestSuite) TestPatentability() {
	w := do(s.router, http.MethodPost, "/api/search/patentability",
		map[string]any{"invention_description": s.docText(2), "top_k": 1}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal([]string{"US1003"}, docNumbers(s.T(), body))
	first := body["results"].([]any)[0].(map[string]any)
	s.Equal("Identical", first["novelty_assessment"])
	s.Equal("Performing Operations; Transporting", first["technical_field"])
}

func (s *SearchHandlerTestSuite) TestByPatentID() {
	w := do(s.router, http.MethodPost, "/api/search/by-patent-id", map[string]any{"doc_number": "US1002"}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal(true, body["success"])
	s.Equal("patent_id", body["scenario"])
	s.NotContains(docNumbers(s.T(), body), "US1002")

	src := body["source_patent"].(map[string]any)
	s.Equal("US1002", src["doc_number"])
	s.Len(src["claims"], 10)
}

func (s *SearchHandlerTestSuite) TestByPatentID_UnknownSource() {
	w := do(s.router, http.MethodPost, "/api/search/by-patent-id", map[string]any{"doc_number": "EP999"}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal(false, body["success"])
	s.EqualValues(0, body["total"])
	s.Empty(docNumbers(s.T(), body))
	s.NotContains(body, "source_patent")
}

func (s *SearchHandlerTestSuite) TestHistory_RecordedForKnownUser() {
	w := do(s.router, http.MethodPost, "/api/search/invalidity",
		map[string]any{"query_claims": s.docText(0), "top_k": 2}, map[string][]string{"X-User-Id": {"u-7"}})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("hist-1", w.Header().Get(middleware.HistoryIDHeader))

	entries := s.history.entries["u-7"]
	s.Require().Len(entries, 1)
	s.Equal(search.ScenarioInvalidity, entries[0].Scenario)
	s.Equal(2, entries[0].ResultCount)
	query := entries[0].QueryData.(search.InvalidityRequest)
	s.Require().NotNil(query.TopK)
	s.Equal(2, *query.TopK)
}

func (s *SearchHandlerTestSuite) TestHistory_SkippedForAnonymous() {
	w := do(s.router, http.MethodPost, "/api/search/invalidity", map[string]any{"query_claims": "tire"}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get(middleware.HistoryIDHeader))
	s.Empty(s.history.entries)
}

func (s *SearchHandlerTestSuite) TestHistory_FailureDoesNotFailSearch() {
	s.history.err = errors.New("db down")
	w := do(s.router, http.MethodPost, "/api/search/invalidity",
		map[string]any{"query_claims": "tire"}, map[string][]string{"X-User-Id": {"u-7"}})
	s.Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get(middleware.HistoryIDHeader))
}

func TestSearchHandlerSuite(t *testing.T) {
	suite.Run(t, new(SearchHandlerTestSuite))
}

func TestSearchHandler_EngineUnavailable(t *testing.T) {
	handle := search.NewHandle(func() (string, error) {
		return "", apperrors.New(apperrors.CodeDataFileAbsent, "no cleaned data files found")
	}, func(context.Context, string) (*search.Engine, error) { return nil, nil }, nil)

	r := gin.New()
	NewSearchHandler(handle).RegisterRoutes(r.Group("/api/search"))

	w := do(r, http.MethodPost, "/api/search/invalidity", map[string]any{"query_claims": "x"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, apperrors.CodeDataFileAbsent.String(), body["code"])
	assert.Equal(t, "no cleaned data files found", body["message"])
}

func TestWriteAppError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		detail string
	}{
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "COMMON_001", "boom"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "COMMON_009", "context deadline exceeded"},
		{"app error with cause", apperrors.Wrap(errors.New("eof"), apperrors.CodeCorpusLoad, "bad corpus").WithDetail("/data/x.json"),
			http.StatusServiceUnavailable, "CORPUS_001", "/data/x.json: eof"},
		{"not found", apperrors.New(apperrors.CodePatentNotFound, "missing"), http.StatusNotFound, "CORPUS_002", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { writeAppError(c, tc.err) })
			w := do(r, http.MethodGet, "/", nil, nil)
			require.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			if tc.detail == "" {
				assert.NotContains(t, body, "detail")
			} else {
				assert.Equal(t, tc.detail, body["detail"])
			}
		})
	}
}

func TestHeaderUser(t *testing.T) {
	resolve := HeaderUser(middleware.UserIDHeader)
	cases := []struct {
		header string
		id     string
		ok     bool
	}{
		{"alice", "alice", true},
		{"  bob ", "bob", true},
		{"   ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set(middleware.UserIDHeader, tc.header)
		}
		id, ok := resolve(c)
		assert.Equal(t, tc.id, id, tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
	}
}
