package app

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

func newService(t *testing.T, cfg *config.Config, scorer ports.Scorer) (*Service, *Metrics) {
	t.Helper()
	m := NewMetrics()
	svc, err := NewService(cfg, files.CatalogFile{Path: cfg.Data.Catalog}, scorer, m, logger.Discard())
	require.NoError(t, err)
	return svc, m
}

// memoService prepares the fixture batch and serves it with the memo scorer.
func memoService(t *testing.T, restricted bool) (*Service, *Metrics, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)
	scorer, err := memoScorerFor(t, cfg, store, restricted)
	require.NoError(t, err)
	svc, m := newService(t, cfg, scorer)
	return svc, m, cfg
}

// =============================================================================
// Strategies
// =============================================================================

func TestService_DefaultStrategy(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newService(t, cfg, nil)
	assert.Equal(t, rank.StrategyFuzzy, svc.DefaultStrategy())
	assert.Equal(t, []string{rank.StrategySubstring, rank.StrategyFuzzy}, svc.Strategies())

	cfg.Serve.Strategy = rank.StrategySubstring
	assert.Equal(t, rank.StrategySubstring, svc.DefaultStrategy())

	withScorer, _, _ := memoService(t, false)
	assert.Equal(t, rank.StrategyEnsemble, withScorer.DefaultStrategy())
	assert.Equal(t, rank.Strategies, withScorer.Strategies())
}

func TestService_RankLearned(t *testing.T) {
	svc, m, _ := memoService(t, false)

	cands, used, err := svc.Rank("FB", rank.StrategyLearned, 0)
	require.NoError(t, err)
	assert.Equal(t, rank.StrategyLearned, used)
	assert.Equal(t, []string{"Fire Bolt", "Fireball", "Shield"}, rank.Names(cands))
	assert.InDelta(t, 0.75, cands[0].Confidence, 1e-9)

	cands, _, err = svc.Rank("FB", rank.StrategyLearned, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire Bolt"}, rank.Names(cands))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rankRequests.WithLabelValues(rank.StrategyLearned, "success")))
}

func TestService_RankDefault(t *testing.T) {
	svc, _, _ := memoService(t, false)

	cands, used, err := svc.Rank("fireball", "", 0)
	require.NoError(t, err)
	assert.Equal(t, rank.StrategyEnsemble, used)
	require.NotEmpty(t, cands)
	assert.Equal(t, "Fireball", cands[0].Name)
}

func TestService_RankErrors(t *testing.T) {
	cfg := testConfig(t)
	svc, m := newService(t, cfg, nil)

	_, _, err := svc.Rank("fb", rank.StrategyLearned, 0)
	assert.True(t, errors.Is(err, rank.ErrNoScorer))

	_, _, err = svc.Rank("fb", "telepathy", 0)
	assert.ErrorContains(t, err, "unknown strategy")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rankRequests.WithLabelValues("telepathy", "error")))
}

// =============================================================================
// Cache
// =============================================================================

func TestService_CacheHit(t *testing.T) {
	cfg := testConfig(t)
	svc, m := newService(t, cfg, nil)

	first, _, err := svc.Rank("fire", rank.StrategySubstring, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	first[0].Name = "mutated"

	second, _, err := svc.Rank("fire", rank.StrategySubstring, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball", "Fire Bolt"}, rank.Names(second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses))
}

func TestService_CacheKeyedByStrategy(t *testing.T) {
	cfg := testConfig(t)
	svc, m := newService(t, cfg, nil)

	_, _, err := svc.Rank("fire", rank.StrategySubstring, 0)
	require.NoError(t, err)
	_, _, err = svc.Rank("fire", rank.StrategyFuzzy, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
}

func TestService_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Serve.CacheTTL = "0"
	svc, m := newService(t, cfg, nil)
	assert.Nil(t, svc.results)

	for range 2 {
		_, _, err := svc.Rank("fire", rank.StrategySubstring, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
}

func TestService_BadCacheTTL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Serve.CacheTTL = "soon"
	_, err := NewService(cfg, files.CatalogFile{Path: cfg.Data.Catalog}, nil, nil, logger.Discard())
	assert.Error(t, err)
}

// =============================================================================
// Reload
// =============================================================================

func TestService_Reload(t *testing.T) {
	cfg := testConfig(t)
	svc, m := newService(t, cfg, nil)

	before, _, err := svc.Rank("wish", rank.StrategySubstring, 0)
	require.NoError(t, err)
	assert.Empty(t, before)

	writeFile(t, cfg.Data.Catalog, `[{"name": "Fireball"}, {"name": "Fire Bolt"}, {"name": "Shield"}, {"name": "Wish"}]`)
	res, err := svc.Reload()
	require.NoError(t, err)
	assert.Equal(t, 4, res.CatalogSize)
	assert.NotEmpty(t, res.Elapsed)

	after, _, err := svc.Rank("wish", rank.StrategySubstring, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wish"}, rank.Names(after))

	h := svc.Health()
	assert.Equal(t, 4, h.CatalogSize)
	assert.Equal(t, 1, h.Reloads)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.catalogSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reloads.WithLabelValues("success")))
}

func TestService_ReloadIgnoresLateResults(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newService(t, cfg, nil)
	engine, gen := svc.snapshot()

	writeFile(t, cfg.Data.Catalog, `[{"name": "Fireball"}, {"name": "Fire Bolt"}, {"name": "Shield"}, {"name": "Wish"}]`)
	_, err := svc.Reload()
	require.NoError(t, err)

	// A rank started on the old engine lands in the cache after the flush.
	stale, err := engine.Substring("wish")
	require.NoError(t, err)
	svc.results.Set(cacheKey(gen, rank.StrategySubstring, "wish"), stale, 0)

	got, _, err := svc.Rank("wish", rank.StrategySubstring, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wish"}, rank.Names(got))
}

func TestService_ReloadFailureKeepsEngine(t *testing.T) {
	cfg := testConfig(t)
	svc, m := newService(t, cfg, nil)
	engine := svc.Engine()

	writeFile(t, cfg.Data.Catalog, `{"not": "an array"}`)
	_, err := svc.Reload()
	require.Error(t, err)

	assert.Same(t, engine, svc.Engine())
	assert.Equal(t, 0, svc.Health().Reloads)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.catalogSize))
}

func TestService_ReloadScorerMismatch(t *testing.T) {
	svc, _, cfg := memoService(t, false)

	writeFile(t, cfg.Data.Catalog, `[{"name": "Fireball"}, {"name": "Fire Bolt"}, {"name": "Shield"}, {"name": "Wish"}]`)
	_, err := svc.Reload()
	var mismatch *rank.CatalogMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
	assert.Equal(t, 3, svc.Engine().Universe().Size())
}

// =============================================================================
// Health and completion
// =============================================================================

func TestService_RestrictedScorer(t *testing.T) {
	svc, _, _ := memoService(t, true)

	h := svc.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.CatalogSize)
	assert.True(t, h.Restricted)
	assert.Equal(t, MemoName, h.Scorer)

	cands, _, err := svc.Rank("sheild", rank.StrategySubstring, 0)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestService_Complete(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newService(t, cfg, nil)

	assert.Equal(t, []string{"Fireball", "Fire Bolt"}, svc.Complete("FI", 0))
	assert.Equal(t, []string{"Fireball"}, svc.Complete("fi", 1))
	assert.Empty(t, svc.Complete("zz", 0))
}
