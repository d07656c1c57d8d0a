package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sumandas0/farmstore/config"
	"github.com/sumandas0/farmstore/internal/integration"
)

var (
	// Build-time variables (set via ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// @title Farmstore Catalog API
// @version 1.0
// @description Listings, search, cart quotes and admin document management for the farm store.
// @BasePath /api/v1
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "farmstore",
		Short: "Farm store catalog server",
		Long:  "Serves filtered, sorted and paginated listings of products, orders, customers and news for the storefront and admin.",
		RunE:  runServer,
		// Errors are printed once by main.
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE:  runServer,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "farmstore %s (commit: %s, built: %s)\n", version, commit, buildTime)
			},
		},
		newMigrateCmd(),
		newSeedCmd(),
		newQueryCmd(),
	)
	return rootCmd
}

func buildInfo() integration.BuildInfo {
	return integration.BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
