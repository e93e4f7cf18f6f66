package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/dataset"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// PrepareResult summarizes one preparation run.
type PrepareResult struct {
	Batch             string
	CatalogSize       int
	RestrictedSize    int
	Observations      int
	Queries           int
	RestrictedQueries int
	Pairs             int
	Files             []string
	Elapsed           time.Duration
}

// exportSpec names the file an example set is exported to. Sets a scorer
// can be trained on also get a descriptor sidecar recording their encoding.
type exportSpec struct {
	set        string
	prefix     string
	scalar     bool
	alphabet   string // empty: no descriptor
	mode       canon.Mode
	restricted bool
}

var exportSets = []exportSpec{
	{set: dataset.SetAlphaDense, prefix: "1-", alphabet: canon.AlphaName, mode: canon.Dense},
	{set: dataset.SetQwertyDense, prefix: "2-", alphabet: canon.QwertyName, mode: canon.Dense},
	{set: dataset.SetAlphaIndex, prefix: "embedding-", alphabet: canon.AlphaName, mode: canon.Index},
	{set: dataset.SetRestrictedIndex, prefix: "embedding-srd-", alphabet: canon.AlphaName, mode: canon.Index, restricted: true},
	{set: dataset.SetNaive, prefix: "naive-", scalar: true},
}

// Prepare loads the catalog and observations named by cfg, prepares every
// dataset and persists it to store under cfg.Data.Batch. When
// cfg.Data.OutputDir is set the maps, evaluation pairs and training sets are
// also exported as JSON under preprocessing/ and training/.
func Prepare(ctx context.Context, cfg *config.Config, catalogSrc ports.CatalogSource, obsSrc ports.ObservationSource, store ports.Storage, l *log.Logger) (*PrepareResult, error) {
	start := time.Now()
	batch := cfg.Data.Batch

	entries, err := catalogSrc.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	idx, err := catalog.Build(entries)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	obs, err := obsSrc.LoadObservations()
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	l.Info("loaded inputs", "entries", idx.Full().Size(), "restricted", idx.Restricted().Size(), "observations", len(obs))

	c, err := cfg.Canonicalizer()
	if err != nil {
		return nil, err
	}
	workers := cfg.Eval.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	b, err := dataset.Prepare(ctx, obs, idx, c, dataset.Options{Workers: workers, SeedCatalog: cfg.Data.SeedCatalog})
	if err != nil {
		return nil, err
	}
	l.Info("aggregated observations",
		"observations", b.Observations, "queries", b.Full.Len(), "restricted_queries", b.Restricted.Len())

	if err := store.DeleteBatch(batch); err != nil {
		return nil, fmt.Errorf("clear batch %q: %w", batch, err)
	}
	if err := saveBatch(store, batch, entries, b); err != nil {
		return nil, err
	}
	l.Debug("batch stored", "batch", batch, "sets", len(b.Sets))

	res := &PrepareResult{
		Batch:             batch,
		CatalogSize:       idx.Full().Size(),
		RestrictedSize:    idx.Restricted().Size(),
		Observations:      b.Observations,
		Queries:           b.Full.Len(),
		RestrictedQueries: b.Restricted.Len(),
		Pairs:             len(b.Evaluation),
	}
	if cfg.Data.OutputDir != "" {
		paths, err := exportBatch(cfg.Data.OutputDir, batch, c, idx, b)
		if err != nil {
			return nil, err
		}
		res.Files = paths
		l.Info("exported", "dir", cfg.Data.OutputDir, "files", len(paths))
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func saveBatch(store ports.Storage, batch string, entries []ports.CatalogEntry, b *dataset.Batch) error {
	if err := store.SaveCatalog(batch, entries); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := store.SaveDistribution(batch, false, b.Full); err != nil {
		return fmt.Errorf("save distribution: %w", err)
	}
	if err := store.SaveDistribution(batch, true, b.Restricted); err != nil {
		return fmt.Errorf("save restricted distribution: %w", err)
	}
	if err := store.SaveEvaluation(batch, false, b.Evaluation); err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	if err := store.SaveEvaluation(batch, true, b.RestrictedEvaluation); err != nil {
		return fmt.Errorf("save restricted evaluation: %w", err)
	}
	for _, set := range b.Sets {
		if err := store.SaveExamples(batch, set); err != nil {
			return fmt.Errorf("save %s: %w", set.Name, err)
		}
	}
	return nil
}

// Export rewrites the JSON files of an already prepared batch from the
// store, without reading observations again.
func Export(cfg *config.Config, store ports.Storage, l *log.Logger) ([]string, error) {
	batch := cfg.Data.Batch
	if cfg.Data.OutputDir == "" {
		return nil, errors.New("export: data.output_dir is empty")
	}
	entries, err := store.LoadCatalog(batch)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("batch %q not prepared; run nnsearch prepare", batch)
	}
	idx, err := catalog.Build(entries)
	if err != nil {
		return nil, err
	}
	c, err := cfg.Canonicalizer()
	if err != nil {
		return nil, err
	}

	b := &dataset.Batch{}
	if b.Evaluation, err = store.LoadEvaluation(batch, false); err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}
	if b.RestrictedEvaluation, err = store.LoadEvaluation(batch, true); err != nil {
		return nil, fmt.Errorf("load restricted evaluation: %w", err)
	}
	for _, spec := range exportSets {
		set, err := store.LoadExamples(batch, spec.set)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", spec.set, err)
		}
		if set == nil {
			return nil, fmt.Errorf("batch %q has no %s set", batch, spec.set)
		}
		b.Sets = append(b.Sets, *set)
	}

	paths, err := exportBatch(cfg.Data.OutputDir, batch, c, idx, b)
	if err != nil {
		return nil, err
	}
	l.Info("exported", "batch", batch, "dir", cfg.Data.OutputDir, "files", len(paths))
	return paths, nil
}

func exportBatch(dir, batch string, c *canon.Canonicalizer, idx *catalog.Index, b *dataset.Batch) ([]string, error) {
	pre := files.Writer{Dir: filepath.Join(dir, "preprocessing")}
	train := files.Writer{Dir: filepath.Join(dir, "training")}
	file := batch + ".json"

	var paths []string
	add := func(p string, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	}

	if err := add(pre.WriteMap("map-"+file, idx.Full().Names())); err != nil {
		return nil, err
	}
	if err := add(pre.WriteMap("map-srd-"+file, idx.Restricted().Names())); err != nil {
		return nil, err
	}
	if err := add(pre.WriteEvaluation("evaluation-"+file, b.Evaluation)); err != nil {
		return nil, err
	}
	if err := add(pre.WriteEvaluation("evaluation-srd-"+file, b.RestrictedEvaluation)); err != nil {
		return nil, err
	}
	for _, spec := range exportSets {
		set, ok := b.Set(spec.set)
		if !ok {
			return nil, fmt.Errorf("batch %q has no %s set", batch, spec.set)
		}
		if err := add(train.WriteExamples(spec.prefix+file, set, spec.scalar)); err != nil {
			return nil, err
		}
		if spec.alphabet == "" {
			continue
		}
		name := spec.prefix + batch
		d := ports.ScorerDescriptor{
			Name:        name,
			Alphabet:    spec.alphabet,
			Mode:        spec.mode.String(),
			Subset:      ports.SubsetFull,
			CatalogSize: idx.Universe(spec.restricted).Size(),
			InputLength: c.Length(),
			Model:       name + ".onnx",
		}
		if spec.restricted {
			d.Subset = ports.SubsetRestricted
		}
		path := filepath.Join(train.Dir, name+".yaml")
		if err := files.SaveDescriptor(path, d); err != nil {
			return nil, fmt.Errorf("write descriptor %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
