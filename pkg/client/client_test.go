package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	count int32
}

func (l *testLogger) Debugf(string, ...interface{}) { atomic.AddInt32(&l.count, 1) }
func (l *testLogger) Infof(string, ...interface{})  { atomic.AddInt32(&l.count, 1) }
func (l *testLogger) Errorf(string, ...interface{}) { atomic.AddInt32(&l.count, 1) }

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL)
	assert.Equal(t, 2, c.retryMax)
	assert.Contains(t, c.userAgent, "patentsearch-go-sdk/")

	for _, bad := range []string{"", "ftp://invalid", "invalid-url", "http://[::1"} {
		_, err := NewClient(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{Timeout: 10 * time.Second}
	logger := &testLogger{}
	c, err := NewClient("https://api.example.com",
		WithHTTPClient(hc),
		WithLogger(logger),
		WithRetryMax(5),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("custom/1.0"),
		WithUserID("alice"),
	)
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Same(t, logger, c.logger)
	assert.Equal(t, 5, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "custom/1.0", c.userAgent)
	assert.Equal(t, "alice", c.userID)

	c, err = NewClient("https://api.example.com", WithRetryMax(-1), WithRetryWait(time.Second, time.Millisecond), WithUserAgent(""))
	require.NoError(t, err)
	assert.Equal(t, 2, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax)
	assert.Contains(t, c.userAgent, "patentsearch-go-sdk/")
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("X-History-ID", "h-1")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "total": 0, "results": []any{}, "scenario": "invalidity"})
	}, WithUserID("alice"))

	resp, err := c.Invalidity(context.Background(), InvalidityRequest{QueryClaims: "x"})
	require.NoError(t, err)
	assert.Equal(t, "h-1", resp.HistoryID)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "alice", got.Get("X-User-ID"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Contains(t, got.Get("User-Agent"), "patentsearch-go-sdk/")
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"code":"COMMON_002","message":"query_claims is required","detail":"x"}`))
	})

	_, err := c.Invalidity(context.Background(), InvalidityRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
	assert.False(t, apiErr.IsServerError())
	assert.Equal(t, "COMMON_002", apiErr.Code)
	assert.Equal(t, "query_claims is required", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "HTTP 422")
	assert.Contains(t, apiErr.Error(), "query_claims is required: x")
}

func TestClient_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "404 page not found", http.StatusNotFound)
	})

	_, err := c.GetPatent(context.Background(), "US1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "404 page not found", apiErr.Message)
}

func TestClient_RetriesGatewayErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy","version":"v1","uptime":"1s"}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}, WithRetryMax(1))

	_, err := c.Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryOnUnavailable(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"code":"CORPUS_003","message":"no cleaned data files found"}`))
	})

	_, err := c.Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnavailable())
	assert.Equal(t, "CORPUS_003", apiErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	_, err := c.Stats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal response")
}

func TestClient_PathEscaping(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"doc_number":"US 1"}`))
	})
	_, err := c.GetPatent(context.Background(), "US 1/2")
	require.NoError(t, err)
	assert.Equal(t, "/api/patent/US%201%2F2", path)
}

func TestCalculateBackoff(t *testing.T) {
	c, err := NewClient("http://x", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)
	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 300 * time.Millisecond, 6: 300 * time.Millisecond} {
		d := c.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, d, base, fmt.Sprint(attempt))
		assert.Less(t, d, base+base/4, fmt.Sprint(attempt))
	}
}
