package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/database"
	"github.com/dbsmedya/tableferry/internal/graph"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/store"
)

var validateSkipDB bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks to
ensure a load or dump can execute.

Checks performed:
  - Configuration syntax and required fields
  - Schema consistency (identifiers, primary keys, foreign-key targets)
  - Dependency graph acyclicity
  - Table file presence in the data directory
  - Database connectivity (unless --skip-db)

Example:
  tableferry validate --config tableferry.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipDB, "skip-db", false,
		"Skip the database connectivity check")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	log.Info("Starting validation checks...")

	fmt.Printf("\n=== Configuration Validation ===\n")
	fmt.Printf("Config file: %s\n", configFile)
	fmt.Printf("Tables declared: %d\n\n", len(cfg.Schema.Tables))

	hasErrors := false

	// Schema consistency
	sch, err := schema.Build(&cfg.Schema)
	if err != nil {
		fmt.Printf("❌ Schema build failed: %v\n", err)
		return fmt.Errorf("validation failed")
	}
	fmt.Printf("✅ Schema: %d table(s)\n", sch.Len())

	// Dependency graph must be acyclic
	g := graph.Build(sch.Tables())
	if err := g.Validate(); err != nil {
		fmt.Printf("❌ Dependency graph: %v\n", err)
		hasErrors = true
	} else {
		fmt.Printf("✅ Dependency graph: %d relationship(s), no cycles\n", g.EdgeCount())
	}

	ctx := context.Background()

	// Table file presence
	st, err := store.New(ctx, cfg.Data)
	if err != nil {
		fmt.Printf("❌ Table store: %v\n", err)
		hasErrors = true
	} else {
		present := 0
		for _, name := range sch.TableNames() {
			rc, err := st.Open(ctx, name)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				fmt.Printf("❌ Table store: %v\n", err)
				hasErrors = true
				break
			}
			rc.Close()
			present++
		}
		fmt.Printf("✅ Table files: %d of %d present at %s\n", present, sch.Len(), st.Location())
	}

	// Database connectivity
	if validateSkipDB {
		fmt.Printf("⏭  Database connectivity check skipped\n")
	} else {
		dbManager := database.NewManager(cfg)
		if err := dbManager.Connect(ctx); err != nil {
			fmt.Printf("❌ Database connection failed: %v\n", err)
			hasErrors = true
		} else {
			defer dbManager.Close()
			if err := dbManager.Ping(ctx); err != nil {
				fmt.Printf("❌ Database ping failed: %v\n", err)
				hasErrors = true
			} else {
				fmt.Printf("✅ Database connection (%s)\n", cfg.Database.Driver)
			}
		}
	}

	fmt.Println()
	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	fmt.Println("=== Validation Complete ===")
	fmt.Println("✅ Configuration validated successfully")
	return nil
}
