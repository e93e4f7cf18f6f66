package app

import (
	"fmt"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/memo"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/onnx"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// MemoName is the descriptor name of the lookup-table scorer.
const MemoName = "memo"

// OpenScorer loads the descriptor at path and opens its ONNX model. The
// runtime is initialized from onnxLib on first use.
func OpenScorer(path, onnxLib string) (*onnx.Scorer, error) {
	d, err := files.LoadDescriptor(path)
	if err != nil {
		return nil, err
	}
	if err := onnx.Init(onnxLib); err != nil {
		return nil, err
	}
	s, err := onnx.Open(d)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MemoScorer builds the lookup-table scorer from the distribution stored for
// batch over the full or restricted universe of idx.
func MemoScorer(store ports.Storage, batch string, idx *catalog.Index, c *canon.Canonicalizer, restricted bool) (*memo.Scorer, error) {
	dist, err := store.LoadDistribution(batch, restricted)
	if err != nil {
		return nil, fmt.Errorf("load distribution: %w", err)
	}
	if dist == nil {
		return nil, fmt.Errorf("batch %q has no distribution; run prepare first", batch)
	}
	d := ports.ScorerDescriptor{
		Name:     MemoName,
		Alphabet: c.Allowed().Name(),
		Mode:     canon.Dense.String(),
		Subset:   ports.SubsetFull,
	}
	if restricted {
		d.Subset = ports.SubsetRestricted
	}
	return memo.New(d, c, dist, idx.Universe(restricted).Size())
}
