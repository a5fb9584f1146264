package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/schema"
)

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List all tables defined in configuration",
	Long: `List-tables displays every table declared in the configuration file
along with its columns, primary key and foreign keys, in definition
order.

Example:
  tableferry list-tables --config tableferry.yaml`,
	RunE: runListTables,
}

func init() {
	rootCmd.AddCommand(listTablesCmd)
}

func runListTables(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Build the schema from configuration
	sch, err := schema.Build(&cfg.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema configuration: %w", err)
	}

	tables := sch.Tables()
	if len(tables) == 0 {
		cmd.Printf("No tables defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Tables defined in %s:\n\n", configFile)

	for i, t := range tables {
		// Table header
		cmd.Printf("%d. %s\n", i+1, t.Name)
		cmd.Printf("   Primary Key: %s\n", strings.Join(t.PrimaryKey, ", "))
		cmd.Printf("   Columns:     %d\n", len(t.Columns))

		for _, c := range t.Columns {
			attrs := []string{string(c.Type)}
			if c.Nullable {
				attrs = append(attrs, "nullable")
			}
			if c.References != nil {
				target := fmt.Sprintf("-> %s.%s", c.References.Table, c.References.Column)
				if c.References.Table == t.Name {
					target += " (self)"
				}
				attrs = append(attrs, target)
			}
			cmd.Printf("      - %s (%s)\n", c.Name, strings.Join(attrs, ", "))
		}

		// Add spacing between tables
		if i < len(tables)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d table(s)\n", len(tables))
	return nil
}
