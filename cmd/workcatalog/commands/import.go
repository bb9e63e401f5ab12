package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workcatalog/workcatalog/pkg/config"
	"github.com/workcatalog/workcatalog/pkg/policy"
)

// errCatalogRejected marks an import refused because of its content
// rather than a storage failure.
var errCatalogRejected = errors.New("catalog rejected")

// importSummary is the machine readable result of an import.
type importSummary struct {
	Files          []string                 `json:"files"`
	Rows           int                      `json:"rows"`
	Replace        bool                     `json:"replace"`
	DryRun         bool                     `json:"dry_run"`
	Problems       []config.ValidationError `json:"problems,omitempty"`
	Violations     []policy.Violation       `json:"violations,omitempty"`
	PolicyWarnings []policy.Violation       `json:"policy_warnings,omitempty"`
}

// importer validates parsed catalogs and writes the accepted ones.
type importer struct {
	policies *policy.Engine
	sess     *session
	replace  bool
	dryRun   bool
}

func newImportCommand() *cobra.Command {
	var (
		replace     bool
		dryRun      bool
		watch       bool
		policyPaths []string
	)

	cmd := &cobra.Command{
		Use:   "import FILE|DIR...",
		Short: "Import work types from catalog files",
		Long: `Import work types from CUE, JSON or YAML catalog files.

All files are validated first; nothing is written if any file has errors.
The rows are then checked against the catalog policies, and any policy
violation with error severity also stops the import. Accepted rows are
written in one transaction, so either every row is stored or none is.
A name that appears more than once is written in order and the last
entry wins.

With --replace the existing catalog is dropped in the same transaction.
With --watch the sources are imported again after every change until the
command is interrupted.`,
		Example: `  # Merge a catalog file into the store
  workcatalog import catalog.cue

  # Replace the catalog with every file in a directory
  workcatalog import --replace ./catalogs

  # Only validate, including a local policy
  workcatalog import --dry-run --policy minimum-pay.rego catalog.yaml

  # Keep the store in sync with a directory
  workcatalog import --replace --watch ./catalogs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			log.Debug().
				Strs("sources", args).
				Bool("replace", replace).
				Bool("dry_run", dryRun).
				Bool("watch", watch).
				Msg("Importing catalog")

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			parser, err := config.NewCatalogParser()
			if err != nil {
				return err
			}

			engine, err := newPolicyEngine(ctx, settings, policyPaths)
			if err != nil {
				return err
			}

			im := &importer{
				policies: engine,
				replace:  replace,
				dryRun:   dryRun,
			}

			if !dryRun {
				im.sess, err = openSessionWith(ctx, settings)
				if err != nil {
					return err
				}
				defer im.sess.closeInto(ctx, &err)
			}

			if watch {
				watcher := config.NewCatalogWatcher(parser, log.Logger, 0)
				return watcher.Watch(ctx, args, func(ctx context.Context, catalog *config.Catalog) error {
					err := im.report(cmd, catalog)
					if errors.Is(err, errCatalogRejected) {
						log.Warn().Err(err).Msg("Catalog change was not imported")
						return nil
					}
					return err
				})
			}

			catalog, err := parser.Parse(ctx, args)
			if err != nil {
				return err
			}
			return im.report(cmd, catalog)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace the whole catalog instead of merging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the files without writing")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "import again whenever a source changes")
	cmd.Flags().StringArrayVar(&policyPaths, "policy", nil, "additional policy file or directory (repeatable)")

	return cmd
}

// report imports catalog and prints the outcome.
func (im *importer) report(cmd *cobra.Command, catalog *config.Catalog) error {
	summary, err := im.importCatalog(cmd.Context(), catalog)
	if writeErr := writeImportSummary(cmd, summary); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return err
	}

	if !jsonOutput {
		verb := "Imported"
		if im.dryRun {
			verb = "Validated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %d work types from %d files\n", verb, summary.Rows, len(summary.Files))
	}
	return nil
}

// importCatalog checks catalog and, unless this is a dry run, writes it.
func (im *importer) importCatalog(ctx context.Context, catalog *config.Catalog) (importSummary, error) {
	summary := importSummary{
		Files:    catalog.SourceFiles,
		Rows:     len(catalog.WorkTypes),
		Replace:  im.replace,
		DryRun:   im.dryRun,
		Problems: catalog.Errors,
	}

	if catalog.HasErrors() {
		return summary, fmt.Errorf("%w: %w", errCatalogRejected, catalog.Err())
	}

	result, err := im.policies.Evaluate(ctx, &policy.Input{
		WorkTypes:   catalog.WorkTypes,
		SourceFiles: catalog.SourceFiles,
		Replace:     im.replace,
	})
	if err != nil {
		return summary, fmt.Errorf("failed to evaluate policies: %w", err)
	}
	summary.Violations = result.Violations
	summary.PolicyWarnings = result.Warnings

	if !result.Allowed {
		return summary, fmt.Errorf("%w: %d policy violations", errCatalogRejected, len(result.Violations))
	}

	if im.dryRun {
		return summary, nil
	}

	err = im.sess.run(ctx, "catalog.import", func(ctx context.Context) error {
		if im.replace {
			return im.sess.store.ReplaceAll(ctx, catalog.WorkTypes)
		}
		return im.sess.store.InsertBatch(ctx, catalog.WorkTypes)
	})
	if err != nil {
		return summary, fmt.Errorf("failed to import catalog: %w", err)
	}
	return summary, nil
}

// writeImportSummary prints problems, or the full summary with --json.
func writeImportSummary(cmd *cobra.Command, summary importSummary) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	stderr := cmd.ErrOrStderr()
	for _, problem := range summary.Problems {
		fmt.Fprintf(stderr, "%s: %s\n", problem.Severity, problem.Error())
	}
	for _, v := range slices.Concat(summary.Violations, summary.PolicyWarnings) {
		fmt.Fprintf(stderr, "%s: policy %s: %s\n", v.Severity, v.Policy, v.Message)
	}
	return nil
}
