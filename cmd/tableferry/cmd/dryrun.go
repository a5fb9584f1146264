package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/store"
	"github.com/dbsmedya/tableferry/internal/transfer"
)

var dryrunWithDeps bool

var dryrunCmd = &cobra.Command{
	Use:   "dry-run [table patterns...]",
	Short: "Simulate a load without touching the database",
	Long: `Dry-run reads the table files and reports what a load would do
without connecting to the database.

The dry-run shows:
  - Load order and per-table row counts
  - Number of batch flushes that would be committed
  - Self-referential rows that would be deferred and replayed
  - Missing table files

Unresolvable self-reference chains fail here exactly as a real load
would, so a clean dry-run also validates the files.

Example:
  tableferry dry-run --config tableferry.yaml 'pokemon*'`,
	RunE: runDryrun,
}

func init() {
	dryrunCmd.Flags().BoolVar(&dryrunWithDeps, "with-deps", false,
		"Also include every table the selection references, transitively")

	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.BatchSize, overrides.SkipVerify)

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Build the schema from configuration
	sch, err := schema.Build(&cfg.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema configuration: %w", err)
	}

	ctx := context.Background()

	// Open the table file store
	st, err := store.New(ctx, cfg.Data)
	if err != nil {
		return fmt.Errorf("failed to open table store: %w", err)
	}

	// Run estimation
	estimator := transfer.NewEstimator(sch, st, cfg, log)
	result, err := estimator.Estimate(ctx, args, dryrunWithDeps)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	// Display execution plan
	printHeader("Dry Run")
	fmt.Fprintln(outputWriter)
	printSection("Load Order")
	for i, t := range result.Stats {
		status := fmt.Sprintf("%d rows, %d flushes", t.Rows, t.Flushes)
		if t.Missing {
			status = "file missing, would skip"
		} else if t.Deferred > 0 {
			status += fmt.Sprintf(", %d deferred", t.Deferred)
		}
		fmt.Fprintf(outputWriter, "  [%d] %s (%s)\n", i+1, t.Table, status)
	}

	fmt.Fprintln(outputWriter)
	printSection("Summary")
	fmt.Fprintf(outputWriter, "  Tables:       %d\n", len(result.LoadOrder))
	fmt.Fprintf(outputWriter, "  Missing:      %d\n", len(result.TablesMissing))
	fmt.Fprintf(outputWriter, "  Total Rows:   %d\n", result.RowsTotal)
	fmt.Fprintf(outputWriter, "  Flushes:      %d\n", result.FlushesTotal)
	fmt.Fprintf(outputWriter, "  Batch Size:   %d\n", cfg.Processing.BatchSize)
	fmt.Fprintf(outputWriter, "  Source:       %s\n", st.Location())

	return nil
}
