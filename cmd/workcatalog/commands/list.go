package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
	"github.com/workcatalog/workcatalog/pkg/stores"
)

func newListCommand() *cobra.Command {
	var (
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work types",
		Long: `List every work type in insertion order.

The yaml, json and cue outputs are catalog files that "workcatalog import"
accepts, so list doubles as an export.`,
		Example: `  # Show the catalog as a table
  workcatalog list

  # Export the catalog as CUE
  workcatalog list -o cue > catalog.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			if jsonOutput {
				output = string(config.FormatJSON)
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.closeInto(ctx, &err)

			var workTypes []stores.WorkType
			err = sess.run(ctx, "catalog.list", func(ctx context.Context) error {
				var readErr error
				workTypes, readErr = sess.store.ReadAll(ctx)
				return readErr
			})
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}

			if output == "table" {
				return writeTable(cmd.OutOrStdout(), workTypes)
			}

			format, err := config.ParseFormat(output)
			if err != nil {
				return err
			}
			return config.WriteCatalog(cmd.OutOrStdout(), format, workTypes)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, yaml, json or cue")

	return cmd
}

func writeTable(w io.Writer, workTypes []stores.WorkType) error {
	if len(workTypes) == 0 {
		_, err := fmt.Fprintln(w, "No work types in catalog")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBASE PAY\tBONUS %")
	for _, wt := range workTypes {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\n", wt.Name, wt.BasePay, wt.BonusPercent)
	}
	return tw.Flush()
}
