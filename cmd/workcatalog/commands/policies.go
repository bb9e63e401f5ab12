package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
	"github.com/workcatalog/workcatalog/pkg/policy"
)

// newPolicyEngine builds the policy engine described by settings plus any
// extra policy paths.
func newPolicyEngine(ctx context.Context, settings *config.Settings, extra []string) (*policy.Engine, error) {
	var opts []policy.Option
	if !settings.Policies.Builtin {
		opts = append(opts, policy.WithoutBuiltins())
	}

	engine, err := policy.NewEngine(log.Logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policies: %w", err)
	}

	paths := append(slices.Clone(settings.Policies.Paths), extra...)
	if len(paths) > 0 {
		if err := engine.LoadPolicies(ctx, paths); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

func newPoliciesCommand() *cobra.Command {
	var (
		policyPaths []string
	)

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List the policies checked on import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			engine, err := newPolicyEngine(cmd.Context(), settings, policyPaths)
			if err != nil {
				return err
			}
			policies := engine.ListPolicies()

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(policies)
			}

			if len(policies) == 0 {
				fmt.Fprintln(out, "No policies configured")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSEVERITY\tENABLED\tDESCRIPTION")
			for _, p := range policies {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.Severity, p.Enabled, p.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringArrayVar(&policyPaths, "policy", nil, "additional policy file or directory (repeatable)")

	return cmd
}
