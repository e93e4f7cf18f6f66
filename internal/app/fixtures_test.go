package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/bbolt"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/memo"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

const fixtureCatalog = `[
	{"name": "Fireball", "srd": true, "level": 3},
	{"name": "Fire Bolt", "srd": true, "level": 0},
	{"name": "Shield", "srd": false, "level": 1}
]`

// Eight observations over four distinct queries; "sheild" only resolves in
// the full universe.
const fixtureObservations = `[
	{"query": "Fireball", "result": "Fireball"},
	{"query": "fireball!", "result": "Fireball"},
	{"query": "fire bolt", "result": "Fire Bolt"},
	{"query": "FB", "result": "Fire Bolt"},
	{"query": "fb", "result": "Fire Bolt"},
	{"query": "fb ", "result": "Fire Bolt"},
	{"query": "fb", "result": "Fireball"},
	{"query": "sheild", "result": "Shield"}
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testConfig lays out a catalog, observations, store path, output and stats
// directories under a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Data.Catalog = filepath.Join(dir, "spell.json")
	cfg.Data.Observations = filepath.Join(dir, "observations.json")
	cfg.Data.Store = filepath.Join(dir, "nnsearch.db")
	cfg.Data.OutputDir = filepath.Join(dir, "out")
	cfg.Eval.StatsDir = filepath.Join(dir, "stats")
	cfg.Eval.Workers = 2
	cfg.Serve.Socket = filepath.Join(dir, "d.sock")
	cfg.Serve.HTTPAddr = ""
	cfg.Serve.Watch = false
	writeFile(t, cfg.Data.Catalog, fixtureCatalog)
	writeFile(t, cfg.Data.Observations, fixtureObservations)
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *bbolt.Store {
	t.Helper()
	store, err := bbolt.NewStore(cfg.Data.Store)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// memoScorerFor builds the memo scorer over a prepared batch.
func memoScorerFor(t *testing.T, cfg *config.Config, store ports.Storage, restricted bool) (*memo.Scorer, error) {
	t.Helper()
	entries, err := store.LoadCatalog(cfg.Data.Batch)
	require.NoError(t, err)
	idx, err := catalog.Build(entries)
	require.NoError(t, err)
	c, err := cfg.Canonicalizer()
	require.NoError(t, err)
	return MemoScorer(store, cfg.Data.Batch, idx, c, restricted)
}
