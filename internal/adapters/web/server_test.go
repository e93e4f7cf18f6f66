package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// fakeService implements socket.Service over a scorer-less engine.
type fakeService struct {
	engine *rank.Engine
}

func (f *fakeService) Rank(query, strategy string, limit int) ([]rank.Candidate, string, error) {
	if strategy == "" {
		strategy = rank.StrategySubstring
	}
	fn, err := f.engine.Strategy(strategy)
	if err != nil {
		return nil, strategy, err
	}
	cands, err := fn(query)
	if limit > 0 && limit < len(cands) {
		cands = cands[:limit]
	}
	return cands, strategy, err
}

func (f *fakeService) Complete(prefix string, limit int) []string {
	return f.engine.Complete(prefix, limit)
}

func (f *fakeService) Health() socket.HealthResult {
	return socket.HealthResult{Status: "ok", CatalogSize: f.engine.Universe().Size()}
}

func (f *fakeService) Reload() (socket.ReloadResult, error) {
	return socket.ReloadResult{}, nil
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	idx, err := catalog.Build([]ports.CatalogEntry{
		{Name: "Fireball"}, {Name: "Fire Bolt"}, {Name: "Shield"},
	})
	require.NoError(t, err)
	engine, err := rank.NewEngine(idx.Full(), canon.Default(), nil, rank.Options{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "nnsearch_test_hits_total", Help: "test"})
	reg.MustRegister(hits)
	hits.Add(3)

	srv := NewServer(&fakeService{engine: engine}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, dst interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	return resp
}

// =============================================================================
// API endpoints
// =============================================================================

func TestRankEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var result socket.RankResult
	resp := getJSON(t, ts.URL+"/api/rank?q=fire&strategy=substring", &result)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "fire", result.Query)
	assert.Equal(t, "substring", result.Strategy)
	assert.Equal(t, []string{"Fireball", "Fire Bolt"}, rank.Names(result.Candidates))

	resp = getJSON(t, ts.URL+"/api/rank?q=fire+bolt&strategy=fuzzy&limit=1", &result)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"Fire Bolt"}, rank.Names(result.Candidates))
	assert.Equal(t, 100.0, result.Candidates[0].Confidence)
}

func TestRankEndpoint_Errors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		url  string
		code int
		msg  string
	}{
		{"missing query", "/api/rank", 400, "missing q"},
		{"bad limit", "/api/rank?q=a&limit=x", 400, "invalid limit"},
		{"negative limit", "/api/rank?q=a&limit=-1", 400, "invalid limit"},
		{"no scorer", "/api/rank?q=a&strategy=learned", 422, "no scorer configured"},
		{"unknown strategy", "/api/rank?q=a&strategy=psychic", 422, "unknown strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			resp := getJSON(t, ts.URL+tt.url, &body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestCompleteEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var result socket.CompleteResult
	getJSON(t, ts.URL+"/api/complete?prefix=Fi", &result)
	assert.Equal(t, []string{"Fireball", "Fire Bolt"}, result.Names)
	assert.Equal(t, 2, result.Count)

	getJSON(t, ts.URL+"/api/complete?prefix=zz", &result)
	assert.NotNil(t, result.Names)
	assert.Empty(t, result.Names)
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var result socket.HealthResult
	resp := getJSON(t, ts.URL+"/api/health", &result)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 3, result.CatalogSize)
	assert.NotEmpty(t, result.Uptime)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "nnsearch_test_hits_total 3")
}

func TestSearchPage(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/", "/static/index.html"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, 200, resp.StatusCode, path)
		ct := resp.Header.Get("Content-Type")
		assert.True(t, strings.HasPrefix(ct, "text/html"), "content-type should be text/html, got %s", ct)
	}
}

func TestServer_StartStop(t *testing.T) {
	idx, err := catalog.Build([]ports.CatalogEntry{{Name: "Shield"}})
	require.NoError(t, err)
	engine, err := rank.NewEngine(idx.Full(), canon.Default(), nil, rank.Options{})
	require.NoError(t, err)

	srv := NewServer(&fakeService{engine: engine}, nil)
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Start("127.0.0.1:0"))

	var result socket.HealthResult
	getJSON(t, srv.URL()+"/api/health", &result)
	assert.Equal(t, 1, result.CatalogSize)

	resp, err := http.Get(srv.URL() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode, "no metrics handler, FileServer 404")

	srv.Stop()
	srv.Stop()
	_, err = http.Get(srv.URL() + "/api/health")
	assert.Error(t, err)
}
