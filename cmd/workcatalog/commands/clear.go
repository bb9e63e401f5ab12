package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newClearCommand() *cobra.Command {
	var (
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every work type",
		Long: `Delete every work type from the catalog.

The database file and its table are kept. Because this cannot be undone,
--yes is required.`,
		Example: `  workcatalog clear --yes`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if !yes {
				return fmt.Errorf("refusing to clear the catalog without --yes")
			}

			ctx := cmd.Context()
			log.Debug().Msg("Clearing catalog")

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.closeInto(ctx, &err)

			err = sess.run(ctx, "catalog.clear", func(ctx context.Context) error {
				return sess.store.ClearTable(ctx)
			})
			if err != nil {
				return fmt.Errorf("failed to clear catalog: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared catalog")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting every work type")

	return cmd
}
