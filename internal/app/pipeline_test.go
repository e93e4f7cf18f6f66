package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/eval"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

func prepare(t *testing.T, cfg *config.Config, store ports.Storage) *PrepareResult {
	t.Helper()
	res, err := Prepare(context.Background(), cfg,
		files.CatalogFile{Path: cfg.Data.Catalog},
		files.ObservationFile{Path: cfg.Data.Observations},
		store, logger.Discard())
	require.NoError(t, err)
	return res
}

// =============================================================================
// Prepare
// =============================================================================

func TestPrepare_Counts(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)

	res := prepare(t, cfg, store)
	assert.Equal(t, "spell", res.Batch)
	assert.Equal(t, 3, res.CatalogSize)
	assert.Equal(t, 2, res.RestrictedSize)
	assert.Equal(t, 8, res.Observations)
	assert.Equal(t, 4, res.Queries)
	assert.Equal(t, 3, res.RestrictedQueries)
	assert.Equal(t, 5, res.Pairs)
	assert.Len(t, res.Files, 13)
}

func TestPrepare_PersistsBatch(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	entries, err := store.LoadCatalog("spell")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	dist, err := store.LoadDistribution("spell", false)
	require.NoError(t, err)
	assert.Equal(t, map[int]uint32{0: 1, 1: 3}, dist["fb"])
	assert.Equal(t, map[int]uint32{0: 2}, dist["fireball"])

	pairs, err := store.LoadEvaluation("spell", false)
	require.NoError(t, err)
	assert.Equal(t, []ports.LabeledQuery{
		{Query: "fb", Result: 0},
		{Query: "fb", Result: 1},
		{Query: "fire bolt", Result: 1},
		{Query: "fireball", Result: 0},
		{Query: "sheild", Result: 2},
	}, pairs)

	restricted, err := store.LoadEvaluation("spell", true)
	require.NoError(t, err)
	assert.Len(t, restricted, 4)

	naive, err := store.LoadExamples("spell", "naive")
	require.NoError(t, err)
	require.NotNil(t, naive)
	assert.Len(t, naive.Records, 8)
}

func TestPrepare_ExportsFiles(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	for _, name := range []string{
		"preprocessing/map-spell.json",
		"preprocessing/map-srd-spell.json",
		"preprocessing/evaluation-spell.json",
		"preprocessing/evaluation-srd-spell.json",
		"training/1-spell.json",
		"training/2-spell.json",
		"training/embedding-spell.json",
		"training/embedding-srd-spell.json",
		"training/naive-spell.json",
	} {
		assert.FileExists(t, filepath.Join(cfg.Data.OutputDir, name))
	}

	data, err := os.ReadFile(filepath.Join(cfg.Data.OutputDir, "preprocessing", "map-srd-spell.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"0": "Fireball", "1": "Fire Bolt"}`, string(data))

	assert.NoFileExists(t, filepath.Join(cfg.Data.OutputDir, "training", "naive-spell.yaml"))
}

func TestPrepare_WritesDescriptors(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)
	train := filepath.Join(cfg.Data.OutputDir, "training")

	d, err := files.LoadDescriptor(filepath.Join(train, "2-spell.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2-spell", d.Name)
	assert.Equal(t, "qwerty", d.Alphabet)
	assert.Equal(t, "dense", d.Mode)
	assert.Equal(t, ports.SubsetFull, d.Subset)
	assert.Equal(t, 3, d.CatalogSize)
	assert.Equal(t, cfg.Canon.Length, d.InputLength)
	assert.Equal(t, filepath.Join(train, "2-spell.onnx"), d.Model)

	d, err = files.LoadDescriptor(filepath.Join(train, "embedding-srd-spell.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", d.Alphabet)
	assert.Equal(t, "index", d.Mode)
	assert.True(t, d.Restricted())
	assert.Equal(t, 2, d.CatalogSize)
}

func TestExport_MatchesPrepare(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	res := prepare(t, cfg, store)

	// Observations are gone; the export reads only the store.
	require.NoError(t, os.Remove(cfg.Data.Observations))
	first := cfg.Data.OutputDir
	cfg.Data.OutputDir = filepath.Join(t.TempDir(), "again")

	paths, err := Export(cfg, store, logger.Discard())
	require.NoError(t, err)
	require.Len(t, paths, len(res.Files))
	for i, path := range paths {
		rel, err := filepath.Rel(cfg.Data.OutputDir, path)
		require.NoError(t, err)
		want, err := os.ReadFile(filepath.Join(first, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), rel)

		wantRel, err := filepath.Rel(first, res.Files[i])
		require.NoError(t, err)
		assert.Equal(t, wantRel, rel)
	}
}

func TestExport_NotPrepared(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)

	_, err := Export(cfg, store, logger.Discard())
	assert.ErrorContains(t, err, "not prepared")
}

func TestExport_NoOutputDir(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)
	cfg.Data.OutputDir = ""

	_, err := Export(cfg, store, logger.Discard())
	assert.ErrorContains(t, err, "output_dir")
}

func TestPrepare_NoOutputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.OutputDir = ""
	store := openStore(t, cfg)

	res := prepare(t, cfg, store)
	assert.Empty(t, res.Files)
}

func TestPrepare_ReplacesBatch(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	writeFile(t, cfg.Data.Observations, `[{"query": "shield", "result": "Shield"}]`)
	res := prepare(t, cfg, store)
	assert.Equal(t, 1, res.Pairs)

	dist, err := store.LoadDistribution("spell", false)
	require.NoError(t, err)
	assert.NotContains(t, dist, "fb")
}

func TestPrepare_UnknownResult(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Data.Observations, `[{"query": "x", "result": "Wish"}]`)
	store := openStore(t, cfg)

	_, err := Prepare(context.Background(), cfg,
		files.CatalogFile{Path: cfg.Data.Catalog},
		files.ObservationFile{Path: cfg.Data.Observations},
		store, logger.Discard())
	assert.ErrorContains(t, err, "Wish")
}

// =============================================================================
// Evaluate
// =============================================================================

func TestEvaluate_NotPrepared(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)

	_, err := NewEvaluator(cfg, store, logger.Discard()).Run(context.Background(), EvaluateOptions{}, nil)
	assert.ErrorContains(t, err, "not prepared")
}

func TestEvaluate_BaselinesAndMemo(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	var labels []string
	results, err := NewEvaluator(cfg, store, logger.Discard()).Run(context.Background(),
		EvaluateOptions{Memo: true},
		func(r RunResult) { labels = append(labels, r.Label) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Naive Partial Match", "Naive Levenshtein", "memo Pure", "Mixed Model"}, labels)
	require.Len(t, results, 4)

	substring := results[0].Report
	assert.Equal(t, 2, substring.Top1)
	assert.Equal(t, []eval.Failure{
		{Query: "fb", Expected: "Fireball"},
		{Query: "fb", Expected: "Fire Bolt"},
		{Query: "sheild", Expected: "Shield"},
	}, substring.Failures)

	assert.Equal(t, 5, results[1].Report.Total())

	memo := results[2].Report
	assert.Equal(t, 4, memo.Top1)
	assert.Equal(t, 1, memo.Top2)
	assert.Empty(t, memo.Failures)

	mixed := results[3].Report
	assert.Equal(t, 5, mixed.Total())
	assert.Empty(t, mixed.Failures)
	assert.Equal(t, rank.StrategyEnsemble, results[3].Stored.Strategy)
	assert.Equal(t, MemoName, results[3].Stored.Model)

	reports, err := store.Reports("spell")
	require.NoError(t, err)
	require.Len(t, reports, 4)
	for _, r := range reports {
		assert.Len(t, r.ID, 36)
	}
}

func TestEvaluate_FailureFiles(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	results, err := NewEvaluator(cfg, store, logger.Discard()).Run(context.Background(), EvaluateOptions{Memo: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Eval.StatsDir, "failed-substring-eval.json"), results[0].FailuresPath)
	assert.Equal(t, filepath.Join(cfg.Eval.StatsDir, "failed-memo-eval.json"), results[2].FailuresPath)
	assert.Equal(t, filepath.Join(cfg.Eval.StatsDir, "failed-memo-mixed-eval.json"), results[3].FailuresPath)

	var failures []eval.Failure
	data, err := os.ReadFile(results[0].FailuresPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &failures))
	assert.Len(t, failures, 3)

	data, err = os.ReadFile(results[2].FailuresPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestEvaluate_Restricted(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	results, err := NewEvaluator(cfg, store, logger.Discard()).Run(context.Background(),
		EvaluateOptions{Memo: true, Restricted: true, NoBaseline: true}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	memo := results[0].Report
	assert.Equal(t, 3, memo.Top1)
	assert.Equal(t, 1, memo.Top2)
	assert.True(t, results[0].Stored.Restricted)
}

func TestEvaluate_SubsetMismatch(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	prepare(t, cfg, store)

	full, err := memoScorerFor(t, cfg, store, false)
	require.NoError(t, err)

	_, err = NewEvaluator(cfg, store, logger.Discard()).Run(context.Background(),
		EvaluateOptions{Scorers: []ports.Scorer{full}, Restricted: true}, nil)
	assert.ErrorContains(t, err, "covers the full universe")
}

func TestFailureFile(t *testing.T) {
	assert.Equal(t, "failed-fuzzy-eval.json", failureFile(rank.StrategyFuzzy, ""))
	assert.Equal(t, "failed-m1-eval.json", failureFile(rank.StrategyLearned, "m1"))
	assert.Equal(t, "failed-m1-mixed-eval.json", failureFile(rank.StrategyEnsemble, "m1"))
}
