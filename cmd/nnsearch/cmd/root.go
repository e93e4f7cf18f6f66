package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
)

var (
	configPath string
	debug      bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "nnsearch",
	Short:             "nnsearch: learned catalog search",
	Long:              "Prepare training data from search observations, evaluate ranking strategies and serve ranked lookups.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// loadConfig runs before every command: .env, then the TOML file, then
// NNSEARCH_* variables.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := c.Log.Level
	if debug {
		level = "debug"
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(batchesCmd)
}
