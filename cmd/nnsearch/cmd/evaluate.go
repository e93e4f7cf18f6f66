package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/app"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

var (
	evalModels     []string
	evalRestricted bool
	evalNoBaseline bool
	evalMemo       bool
	evalBatch      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Replay evaluation pairs through every ranking strategy",
	Long: "Runs the substring and fuzzy baselines, the learned strategy for every --model " +
		"descriptor and the ensemble for the last one over a prepared batch. " +
		"Reports are stored with the batch and failures written under eval.stats_dir.",
	Example: "  nnsearch evaluate --model models/spell.yaml\n" +
		"  nnsearch evaluate --restricted --model models/spell-srd.yaml --no-baseline\n" +
		"  nnsearch evaluate --memo",
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringArrayVarP(&evalModels, "model", "m", nil, "scorer descriptor (repeatable, default rank.model)")
	f.BoolVar(&evalRestricted, "restricted", false, "evaluate over the restricted subset")
	f.BoolVar(&evalNoBaseline, "no-baseline", false, "skip the substring and fuzzy baselines")
	f.BoolVar(&evalMemo, "memo", false, "also evaluate the lookup table built from the batch")
	f.StringVar(&evalBatch, "batch", "", "batch name (default data.batch)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evalBatch != "" {
		cfg.Data.Batch = evalBatch
	}
	models := evalModels
	if len(models) == 0 && cfg.Rank.Model != "" {
		models = []string{cfg.Rank.Model}
	}

	var scorers []ports.Scorer
	for _, path := range models {
		s, err := app.OpenScorer(path, cfg.Rank.OnnxLibrary)
		if err != nil {
			return fmt.Errorf("model %s: %w", path, err)
		}
		defer s.Close()
		scorers = append(scorers, s)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := app.EvaluateOptions{
		Scorers:    scorers,
		Restricted: evalRestricted,
		NoBaseline: evalNoBaseline,
		Memo:       evalMemo,
	}
	results, err := app.NewEvaluator(cfg, store, logger.New("evaluate")).Run(cmd.Context(), opts,
		func(r app.RunResult) { fmt.Println(formatRunLine(r)) })
	if err != nil {
		return err
	}
	if len(results) > 1 {
		fmt.Println()
		fmt.Println(summaryTable(results))
	}
	return nil
}
