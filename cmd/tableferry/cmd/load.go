package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/database"
	"github.com/dbsmedya/tableferry/internal/lock"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
	"github.com/dbsmedya/tableferry/internal/store"
	"github.com/dbsmedya/tableferry/internal/transfer"
	"github.com/dbsmedya/tableferry/internal/verifier"
)

var (
	loadWithDeps bool
	loadDrop     bool
	loadVerbose  bool
	loadForce    bool
)

var loadCmd = &cobra.Command{
	Use:   "load [table patterns...]",
	Short: "Load table files into the database",
	Long: `Load creates the selected tables and streams their files into the
database in foreign-key dependency order.

The load process follows these steps:
  1. Resolve the table selection and its dependency order
  2. With --drop, drop existing tables in reverse order first
  3. Create the tables and stream each file through batched,
     transactional inserts
  4. Defer and replay rows blocked on same-table self-references
  5. Verify the loaded data (count or checksum)

Table name arguments may use * and ? wildcards; no arguments loads every
table. Missing files are skipped, not errors.

Example:
  tableferry load --config tableferry.yaml --drop
  tableferry load 'pokemon*' --with-deps --verbose`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadWithDeps, "with-deps", false,
		"Also load every table the selection references, transitively")
	loadCmd.Flags().BoolVar(&loadDrop, "drop", false,
		"Drop existing tables (reverse dependency order) before recreating them")
	loadCmd.Flags().BoolVarP(&loadVerbose, "verbose", "v", false,
		"Print per-table progress")
	loadCmd.Flags().BoolVar(&loadForce, "force", false,
		"Force execution even if the load lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
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

	log.Infow("Starting load operation",
		"config", configFile,
		"patterns", args,
	)

	// Build the schema from configuration
	sch, err := schema.Build(&cfg.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema configuration: %w", err)
	}

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx := database.SetupSignalHandlerWithCallback(func(os.Signal) {
		log.Warn("Received shutdown signal - completing current table...")
	})

	// Connect to database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	dialect, err := sqlutil.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}

	// Acquire advisory lock to prevent concurrent loads into the same database
	if !loadForce {
		loadLock := lock.NewLoadLock(dbManager.DB, dialect, cfg.Database.Database)
		if err := loadLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("another load is already running against this database (use --force to override)")
			}
			return fmt.Errorf("failed to acquire load lock: %w", err)
		}
		defer loadLock.Release(context.Background())
		log.Infow("Acquired advisory load lock", "lock", loadLock.LockName())
	} else {
		log.Warnw("Skipping advisory lock acquisition (--force flag used)")
	}

	// Open the table file store
	st, err := store.New(ctx, cfg.Data)
	if err != nil {
		return fmt.Errorf("failed to open table store: %w", err)
	}

	// Execute load
	loader := transfer.NewLoader(dbManager.DB, dialect, sch, st, cfg, log)
	result, err := loader.Load(ctx, transfer.LoadOptions{
		Tables:       args,
		WithDeps:     loadWithDeps,
		DropExisting: loadDrop,
		Verbose:      loadVerbose,
		ProgressOut:  os.Stdout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Load operation cancelled by user")
			return nil
		}
		return fmt.Errorf("load operation failed: %w", err)
	}

	// Display results
	fmt.Printf("\n=== Load Complete ===\n")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Duration: %s\n", result.Duration)
	fmt.Printf("Tables Loaded: %d\n", result.TablesLoaded)
	fmt.Printf("Tables Missing: %d\n", len(result.TablesMissing))
	fmt.Printf("Rows Written: %d\n", result.RowsWritten)
	fmt.Printf("Rows Replayed: %d\n", result.RowsReplayed)
	fmt.Printf("Flushes: %d\n", result.Flushes)

	// Verify the loaded tables
	if cfg.Verification.SkipVerification {
		log.Info("Verification skipped")
		return nil
	}
	return verifyLoad(ctx, cfg, sch, st, dbManager, dialect, result, log)
}

// verifyLoad checks every loaded table against its file and fails if any
// table does not match.
func verifyLoad(ctx context.Context, cfg *config.Config, sch *schema.Schema, st store.Store,
	dbManager *database.Manager, dialect sqlutil.Dialect, result *transfer.LoadResult, log *logger.Logger) error {

	delimiter := ','
	if cfg.Data.Delimiter != "" {
		delimiter = []rune(cfg.Data.Delimiter)[0]
	}

	v := verifier.New(dbManager.DB, dialect, st, delimiter, cfg.Verification.Method, log)

	var tables []*schema.Table
	for _, name := range result.LoadOrder {
		if t, ok := sch.Table(name); ok {
			tables = append(tables, t)
		}
	}

	results, err := v.Verify(ctx, tables)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	mismatches := 0
	for _, r := range results {
		if !r.Match {
			mismatches++
			fmt.Printf("Verification mismatch: %s (file=%d, db=%d)\n", r.Table, r.FileRows, r.DBRows)
		}
	}
	if mismatches > 0 {
		return fmt.Errorf("verification failed for %d table(s)", mismatches)
	}

	fmt.Printf("Verification: %d table(s) OK (%s)\n", len(results), cfg.Verification.Method)
	return nil
}
