package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/eval"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// EvaluateOptions selects what an evaluation run covers.
type EvaluateOptions struct {
	// Scorers are evaluated in order with the learned strategy; the last
	// one is also evaluated with the ensemble strategy.
	Scorers    []ports.Scorer
	Restricted bool
	NoBaseline bool
	// Memo prepends the lookup-table scorer built from the stored
	// distribution.
	Memo bool
}

// RunResult is one evaluated strategy.
type RunResult struct {
	Label        string
	Report       *eval.Report
	Stored       ports.RunReport
	FailuresPath string
}

// Evaluator replays a prepared batch's evaluation pairs through each
// strategy, storing a report per run and writing its failures as JSON.
type Evaluator struct {
	cfg   *config.Config
	store ports.Storage
	log   *log.Logger
}

// NewEvaluator creates an evaluator over store.
func NewEvaluator(cfg *config.Config, store ports.Storage, l *log.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, store: store, log: l}
}

// Run evaluates every strategy opts selects. onResult, if set, is called as
// each run completes.
func (e *Evaluator) Run(ctx context.Context, opts EvaluateOptions, onResult func(RunResult)) ([]RunResult, error) {
	batch := e.cfg.Data.Batch
	entries, err := e.store.LoadCatalog(batch)
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
	pairs, err := e.store.LoadEvaluation(batch, opts.Restricted)
	if err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}
	c, err := e.cfg.Canonicalizer()
	if err != nil {
		return nil, err
	}
	u := idx.Universe(opts.Restricted)
	e.log.Info("evaluating", "batch", batch, "universe", u.Label(), "pairs", len(pairs))

	scorers := opts.Scorers
	if opts.Memo {
		m, err := MemoScorer(e.store, batch, idx, c, opts.Restricted)
		if err != nil {
			return nil, err
		}
		scorers = append([]ports.Scorer{m}, scorers...)
	}
	for _, s := range scorers {
		if d := s.Descriptor(); d.Restricted() != opts.Restricted {
			return nil, fmt.Errorf("scorer %q covers the %s universe, evaluation uses %s", d.Name, d.Subset, u.Label())
		}
	}

	var results []RunResult
	record := func(label, strategy string, scorer ports.Scorer) error {
		r, err := e.runOne(ctx, batch, label, strategy, u, c, scorer, pairs, opts.Restricted)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		results = append(results, r)
		if onResult != nil {
			onResult(r)
		}
		return nil
	}

	if !opts.NoBaseline {
		if err := record("Naive Partial Match", rank.StrategySubstring, nil); err != nil {
			return results, err
		}
		if err := record("Naive Levenshtein", rank.StrategyFuzzy, nil); err != nil {
			return results, err
		}
	}
	for _, s := range scorers {
		if err := record(s.Descriptor().Name+" Pure", rank.StrategyLearned, s); err != nil {
			return results, err
		}
	}
	if len(scorers) > 0 {
		if err := record("Mixed Model", rank.StrategyEnsemble, scorers[len(scorers)-1]); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (e *Evaluator) runOne(ctx context.Context, batch, label, strategy string, u *catalog.Universe, c *canon.Canonicalizer, scorer ports.Scorer, pairs []ports.LabeledQuery, restricted bool) (RunResult, error) {
	engine, err := rank.NewEngine(u, c, scorer, e.cfg.RankOptions())
	if err != nil {
		return RunResult{}, err
	}
	fn, err := engine.Strategy(strategy)
	if err != nil {
		return RunResult{}, err
	}
	workers := e.cfg.Eval.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	report, err := eval.Evaluate(ctx, fn, pairs, u, eval.Options{Workers: workers})
	if err != nil {
		return RunResult{}, err
	}

	stored := ports.RunReport{
		Strategy:   strategy,
		Restricted: restricted,
		Top1:       report.Top1,
		Top2:       report.Top2,
		Top3:       report.Top3,
		Top10:      report.Top10,
		Failed:     len(report.Failures),
		Elapsed:    report.Elapsed,
	}
	if scorer != nil {
		stored.Model = scorer.Descriptor().Name
	}
	if err := e.store.AppendReport(batch, stored); err != nil {
		return RunResult{}, fmt.Errorf("store report: %w", err)
	}

	res := RunResult{Label: label, Report: report, Stored: stored}
	if e.cfg.Eval.StatsDir != "" {
		failures := report.Failures
		if failures == nil {
			failures = []eval.Failure{}
		}
		path, err := files.Writer{Dir: e.cfg.Eval.StatsDir}.WriteJSON(failureFile(strategy, stored.Model), failures)
		if err != nil {
			return RunResult{}, fmt.Errorf("write failures: %w", err)
		}
		res.FailuresPath = path
	}
	e.log.Debug("run complete", "label", label, "report", report.String())
	return res, nil
}

// failureFile names the failures file of one run.
func failureFile(strategy, model string) string {
	switch strategy {
	case rank.StrategyLearned:
		return fmt.Sprintf("failed-%s-eval.json", model)
	case rank.StrategyEnsemble:
		return fmt.Sprintf("failed-%s-mixed-eval.json", model)
	default:
		return fmt.Sprintf("failed-%s-eval.json", strategy)
	}
}
