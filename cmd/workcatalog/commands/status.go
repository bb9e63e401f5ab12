package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type catalogStatus struct {
	Database  string `json:"database"`
	Healthy   bool   `json:"healthy"`
	WorkTypes int    `json:"work_types"`
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog database status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.closeInto(ctx, &err)

			status := catalogStatus{Database: sess.settings.Database.Path}
			err = sess.run(ctx, "catalog.status", func(ctx context.Context) error {
				if err := sess.store.HealthCheck(ctx); err != nil {
					return err
				}
				status.Healthy = true

				workTypes, err := sess.store.ReadAll(ctx)
				if err != nil {
					return err
				}
				status.WorkTypes = len(workTypes)
				return nil
			})
			if err != nil {
				return fmt.Errorf("catalog is unhealthy: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database:   %s\nHealthy:    %t\nWork types: %d\n",
				status.Database, status.Healthy, status.WorkTypes)
			return nil
		},
	}

	return cmd
}
