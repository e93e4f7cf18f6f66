package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/app"
)

var (
	reportsBatch string
	reportsLast  int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List stored evaluation runs of a batch",
	Args:  cobra.NoArgs,
	RunE:  runReports,
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List prepared batches",
	Args:  cobra.NoArgs,
	RunE:  runBatches,
}

func init() {
	f := reportsCmd.Flags()
	f.StringVar(&reportsBatch, "batch", "", "batch name (default data.batch)")
	f.IntVarP(&reportsLast, "last", "n", 0, "only the most recent runs")
}

func runReports(cmd *cobra.Command, args []string) error {
	if reportsBatch != "" {
		cfg.Data.Batch = reportsBatch
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := app.Reports(store, cfg.Data.Batch, reportsLast)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println(styleMuted.Render("no runs stored for batch " + cfg.Data.Batch))
		return nil
	}
	fmt.Println(reportsTable(reports))
	return nil
}

func runBatches(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	batches, err := app.Batches(store)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println(styleMuted.Render("no batches; run nnsearch prepare"))
		return nil
	}
	fmt.Println(batchesTable(batches))
	return nil
}
