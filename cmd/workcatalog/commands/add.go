package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
	"github.com/workcatalog/workcatalog/pkg/stores"
)

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME BASE_PAY BONUS_PERCENT",
		Short: "Add or update a work type",
		Long: `Add a work type to the catalog.

If a work type with the same name exists, its base pay and bonus
percentage are replaced; it keeps its position in the catalog.`,
		Example: `  # Add a welder earning 20.00 with a 5% bonus
  workcatalog add Welder 20 5

  # Names with spaces need quoting
  workcatalog add "Night Guard" 18.5 12.5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			wt, err := parseWorkTypeArgs(args)
			if err != nil {
				return err
			}

			parser, err := config.NewCatalogParser()
			if err != nil {
				return err
			}
			if err := parser.ValidateWorkType(wt); err != nil {
				return fmt.Errorf("invalid work type %q: %w", wt.Name, err)
			}

			log.Debug().
				Str("name", wt.Name).
				Float64("base_pay", wt.BasePay).
				Float64("bonus_percent", wt.BonusPercent).
				Msg("Adding work type")

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.closeInto(ctx, &err)

			err = sess.run(ctx, "catalog.add", func(ctx context.Context) error {
				return sess.store.Insert(ctx, wt.Name, wt.BasePay, wt.BonusPercent)
			})
			if err != nil {
				return fmt.Errorf("failed to save work type: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved work type %s\n", wt.Name)
			return nil
		},
	}

	return cmd
}

func parseWorkTypeArgs(args []string) (stores.WorkType, error) {
	basePay, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return stores.WorkType{}, fmt.Errorf("invalid base pay %q: %w", args[1], err)
	}

	bonusPercent, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return stores.WorkType{}, fmt.Errorf("invalid bonus percent %q: %w", args[2], err)
	}

	return stores.WorkType{
		Name:         args[0],
		BasePay:      basePay,
		BonusPercent: bonusPercent,
	}, nil
}
