package searchproxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librovision/librovision/cache"
	"github.com/librovision/librovision/internal/catalog"
)

const volumesBody = `{
	"totalItems": 2,
	"items": [
		{"id": "vol-1", "volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "publishedDate": "1965"}},
		{"id": "vol-2", "volumeInfo": {"title": "Dune Messiah", "authors": ["Frank Herbert"], "publishedDate": "1969"}}
	]
}`

func newTestProxy(t *testing.T, upstream http.HandlerFunc) (*Handler, *httptest.Server, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	cat := catalog.New(srv.URL, "test-key", nil)
	h := NewHandler(cat, cache.NewDefaultKeySerializer(), Options{})
	return h, srv, &calls
}

func doSearch(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/search?"+query, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestSearch_CachesIdenticalQueries(t *testing.T) {
	h, _, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(volumesBody))
	})

	first := doSearch(t, h, "q=dune")
	require.Equal(t, http.StatusOK, first.Code)

	second := doSearch(t, h, "q=dune")
	require.Equal(t, http.StatusOK, second.Code)

	assert.EqualValues(t, 1, atomic.LoadInt64(calls), "identical searches must share one upstream call")

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "dune", resp.Query)
	assert.Equal(t, 2, resp.TotalItems)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Dune", resp.Items[0].Title)
}

func TestSearch_DistinctPagesFetchedSeparately(t *testing.T) {
	h, _, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(volumesBody))
	})

	doSearch(t, h, "q=dune&page=1")
	doSearch(t, h, "q=dune&page=2")

	assert.EqualValues(t, 2, atomic.LoadInt64(calls))
}

func TestSearch_ValidationErrors(t *testing.T) {
	h, _, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(volumesBody))
	})

	tests := []struct {
		name  string
		query string
	}{
		{"missing q", ""},
		{"zero page", "q=dune&page=0"},
		{"oversized maxResults", "q=dune&maxResults=100"},
		{"non-numeric page", "q=dune&page=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doSearch(t, h, tt.query)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}

	assert.EqualValues(t, 0, atomic.LoadInt64(calls), "invalid requests must not reach the upstream")
}

func TestSearch_CredentialFailureIsStructured(t *testing.T) {
	h, _, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	})

	rec := doSearch(t, h, "q=dune")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "catalog_credentials", resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
}

func TestSearch_UpstreamServerErrorMirrored(t *testing.T) {
	h, _, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"backend unavailable"}}`))
	})

	rec := doSearch(t, h, "q=dune")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upstream_error", resp.Error)
	assert.Equal(t, "backend unavailable", resp.Message)
}

func TestSearch_OpenBreakerReports503(t *testing.T) {
	h, _, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// Distinct queries sidestep the result cache so every request hits the
	// failing upstream until the breaker opens.
	queries := []string{"a", "b", "c", "d", "e"}
	for _, q := range queries {
		doSearch(t, h, "q="+q)
	}

	rec := doSearch(t, h, "q=f")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "catalog_unavailable", resp.Error)
	assert.Contains(t, resp.Suggestion, "retry")
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(volumesBody))
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestOfflinePage(t *testing.T) {
	h, _, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/offline", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "offline"))
}
