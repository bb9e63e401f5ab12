package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workcatalog",
		Short: "workcatalog - work type pay catalog",
		Long: `workcatalog maintains a catalog of work types and their pay rates in a
local SQLite database.

Each work type has a unique name, a base pay amount and a bonus percentage.
Catalogs can be imported from CUE, JSON or YAML files, checked against Rego
policies and exported again.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path (default ./"+config.DefaultSettingsFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database path (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newClearCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newPoliciesCommand())

	return rootCmd
}
