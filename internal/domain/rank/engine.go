package rank

import (
	"errors"
	"fmt"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Strategy names.
const (
	StrategySubstring = "substring"
	StrategyFuzzy     = "fuzzy"
	StrategyLearned   = "learned"
	StrategyEnsemble  = "ensemble"
)

// Strategies lists every strategy name in presentation order.
var Strategies = []string{StrategySubstring, StrategyFuzzy, StrategyLearned, StrategyEnsemble}

// ErrNoScorer is returned by the learned and ensemble strategies when the
// engine has no scorer.
var ErrNoScorer = errors.New("no scorer configured")

// RankFunc ranks one query.
type RankFunc func(query string) ([]Candidate, error)

// Options tunes an Engine.
type Options struct {
	FuzzyMetric string
	// FuzzyLimit caps the fuzzy strategy; 0 means DefaultFuzzyLimit and a
	// negative value means no limit.
	FuzzyLimit int
	// LearnedLimit caps the pure learned strategy; 0 means
	// DefaultLearnedLimit and a negative value means no limit.
	LearnedLimit int
}

// Engine binds a universe, a canonicalizer and an optional scorer. It holds
// no mutable state and is safe for concurrent use when its scorer is.
type Engine struct {
	universe *catalog.Universe
	canon    *canon.Canonicalizer
	scorer   ports.Scorer
	opts     Options
}

// NewEngine validates the scorer against the universe and metric name.
func NewEngine(u *catalog.Universe, c *canon.Canonicalizer, scorer ports.Scorer, opts Options) (*Engine, error) {
	if _, err := SimilarityFor(opts.FuzzyMetric); err != nil {
		return nil, err
	}
	if scorer != nil {
		d := scorer.Descriptor()
		if d.CatalogSize > 0 && d.CatalogSize != u.Size() {
			return nil, &CatalogMismatchError{Scorer: d.Name, Expected: u.Size(), Got: d.CatalogSize}
		}
	}
	if opts.FuzzyLimit == 0 {
		opts.FuzzyLimit = DefaultFuzzyLimit
	}
	if opts.LearnedLimit == 0 {
		opts.LearnedLimit = DefaultLearnedLimit
	}
	return &Engine{universe: u, canon: c, scorer: scorer, opts: opts}, nil
}

// Universe returns the catalog universe the engine ranks over.
func (e *Engine) Universe() *catalog.Universe { return e.universe }

// Scorer returns the engine's scorer, or nil.
func (e *Engine) Scorer() ports.Scorer { return e.scorer }

// Substring runs the substring strategy.
func (e *Engine) Substring(query string) ([]Candidate, error) {
	return Substring(e.universe, query), nil
}

// Fuzzy runs the fuzzy strategy.
func (e *Engine) Fuzzy(query string) ([]Candidate, error) {
	return Fuzzy(e.universe, query, FuzzyOptions{Metric: e.opts.FuzzyMetric, Limit: e.opts.FuzzyLimit})
}

// Learned runs the learned strategy.
func (e *Engine) Learned(query string) ([]Candidate, error) {
	if e.scorer == nil {
		return nil, ErrNoScorer
	}
	return Learned(e.universe, e.canon, query, e.scorer, e.opts.LearnedLimit)
}

// Ensemble merges the fuzzy strategy with the full learned ranking.
func (e *Engine) Ensemble(query string) ([]Candidate, error) {
	if e.scorer == nil {
		return nil, ErrNoScorer
	}
	fz, err := e.Fuzzy(query)
	if err != nil {
		return nil, err
	}
	sc, err := Learned(e.universe, e.canon, query, e.scorer, 0)
	if err != nil {
		return nil, err
	}
	return Merge(fz, sc), nil
}

// Complete returns up to limit catalog names starting with prefix.
func (e *Engine) Complete(prefix string, limit int) []string {
	return Complete(e.universe, prefix, limit)
}

// Strategy resolves a strategy by name.
func (e *Engine) Strategy(name string) (RankFunc, error) {
	switch name {
	case StrategySubstring:
		return e.Substring, nil
	case StrategyFuzzy:
		return e.Fuzzy, nil
	case StrategyLearned:
		if e.scorer == nil {
			return nil, fmt.Errorf("strategy %q: %w", name, ErrNoScorer)
		}
		return e.Learned, nil
	case StrategyEnsemble:
		if e.scorer == nil {
			return nil, fmt.Errorf("strategy %q: %w", name, ErrNoScorer)
		}
		return e.Ensemble, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
