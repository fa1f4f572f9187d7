package main

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/config"
)

// configPath is shared by every command through the persistent --config flag.
var configPath string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dittofm",
		Short: "A minimal HTTP file manager",
		Long: `DittoFM serves a directory over a small HTTP verb API
(GET, PUT, DELETE, MKCOL, POST) and ships a terminal client to browse
and edit it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: $XDG_CONFIG_HOME/dittofm/config.yaml)")

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(browseCmd())
	rootCmd.AddCommand(statCmd())

	return rootCmd
}

// loadConfig loads the configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return nil, err
	}
	return cfg, nil
}
