package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/app"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
)

var (
	prepareObservations string
	prepareBatch        string
	prepareOut          string
	prepareSeed         bool
	prepareExportOnly   bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Aggregate observations into training and evaluation data",
	Long: "Reads the catalog and an observation batch, aggregates them per normalized query " +
		"and stores label vectors, encoded training sets and evaluation pairs. " +
		"With an output directory the same data is exported as JSON. " +
		"--export-only rewrites the JSON of a stored batch without reading observations.",
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	f := prepareCmd.Flags()
	f.StringVar(&prepareObservations, "observations", "", "observation file (default data.observations)")
	f.StringVar(&prepareBatch, "batch", "", "batch name (default data.batch)")
	f.StringVarP(&prepareOut, "out", "o", "", "JSON export directory (default data.output_dir)")
	f.BoolVar(&prepareSeed, "seed-catalog", false, "add one (name, name) observation per catalog entry")
	f.BoolVar(&prepareExportOnly, "export-only", false, "re-export a stored batch instead of preparing it")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	if prepareObservations != "" {
		cfg.Data.Observations = prepareObservations
	}
	if prepareBatch != "" {
		cfg.Data.Batch = prepareBatch
	}
	if cmd.Flags().Changed("out") {
		cfg.Data.OutputDir = prepareOut
	}
	if prepareSeed {
		cfg.Data.SeedCatalog = true
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if prepareExportOnly {
		paths, err := app.Export(cfg, store, logger.New("prepare"))
		if err != nil {
			return err
		}
		fmt.Print(formatExport(cfg.Data.Batch, paths))
		return nil
	}

	res, err := app.Prepare(cmd.Context(), cfg,
		files.CatalogFile{Path: cfg.Data.Catalog},
		files.ObservationFile{Path: cfg.Data.Observations},
		store, logger.New("prepare"))
	if err != nil {
		return err
	}
	fmt.Print(formatPrepare(res))
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
