package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
)

func newInitCommand() *cobra.Command {
	var (
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a work type catalog",
		Long: `Initialize a new work type catalog.

This command:
  - writes a settings file (unless one exists and --force is not given)
  - creates the catalog database and its WorkTypes table

Running init on an existing catalog keeps its contents.`,
		Example: `  # Initialize in the current directory
  workcatalog init

  # Initialize with a custom settings and database path
  workcatalog init --config /etc/workcatalog.yaml --db /var/lib/workcatalog/catalog.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			settingsPath := configPath
			if settingsPath == "" {
				settingsPath = config.DefaultSettingsFile
			}

			log.Debug().
				Str("config", settingsPath).
				Str("db", dbPath).
				Bool("force", force).
				Msg("Initializing catalog")

			// Step 1: Settings file
			settings := config.DefaultSettings()
			_, statErr := os.Stat(settingsPath)
			writeSettings := force || os.IsNotExist(statErr)
			if !writeSettings {
				loaded, err := config.Load(settingsPath)
				if err != nil {
					return err
				}
				settings = loaded
			}
			if dbPath != "" {
				settings.Database.Path = dbPath
			}

			if writeSettings {
				if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
					return fmt.Errorf("failed to create directory for %s: %w", settingsPath, err)
				}
				if err := settings.Save(settingsPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Created settings file: %s\n", settingsPath)
			} else {
				fmt.Fprintf(out, "✓ Using existing settings file: %s\n", settingsPath)
			}

			// Step 2: Catalog database
			if err := os.MkdirAll(filepath.Dir(settings.Database.Path), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", settings.Database.Path, err)
			}

			if verbose {
				settings.Logging.Level = "debug"
			}

			sess, err := openSessionWith(ctx, settings)
			if err != nil {
				return err
			}
			defer sess.closeInto(ctx, &err)

			fmt.Fprintf(out, "✓ Initialized catalog database: %s\n", settings.Database.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")

	return cmd
}
