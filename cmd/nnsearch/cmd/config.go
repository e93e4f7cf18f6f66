package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/app"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved data paths, socket path and daemon status. --init writes the defaults to the config file.",
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write a default config file if none exists")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.Save(config.DefaultConfig(), configPath); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", styleOK.Render("wrote"), configPath)
		return nil
	}

	sockPath := app.SocketPath(cfg)
	status := styleWarn.Render("not running")
	if daemonClient().Ping() {
		status = styleOK.Render("running")
	}
	model := cfg.Rank.Model
	if model == "" {
		model = styleMuted.Render("none")
	}

	fmt.Println(styleTitle.Render("nnsearch config"))
	printField("Config", configPath)
	printField("Catalog", cfg.Data.Catalog)
	printField("Observations", cfg.Data.Observations)
	printField("Store", cfg.Data.Store)
	printField("Batch", cfg.Data.Batch)
	printField("Model", model)
	printField("Socket", sockPath)
	printField("Daemon", status)
	if cfg.Serve.HTTPAddr != "" {
		printField("HTTP", "http://"+cfg.Serve.HTTPAddr)
	}
	return nil
}
