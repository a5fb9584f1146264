package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/graph"
	"github.com/dbsmedya/tableferry/internal/schema"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planWithDeps bool

var planCmd = &cobra.Command{
	Use:   "plan [table patterns...]",
	Short: "Show the execution plan for a load",
	Long: `Plan analyzes the schema and displays the order tables would be
dropped, created and loaded in, based on dependency resolution.

The plan shows:
  - Dependency tree (referenced tables above their referents)
  - Load order (referenced tables first)
  - Drop order (exact reverse of load order)
  - Detected foreign-key relationships

Example:
  tableferry plan --config tableferry.yaml 'pokemon*'`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planWithDeps, "with-deps", false,
		"Also include every table the selection references, transitively")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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

	// Build the schema from configuration
	sch, err := schema.Build(&cfg.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema configuration: %w", err)
	}

	// Resolve the table selection
	tables, err := sch.Select(args)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("no tables match the given patterns")
	}
	if planWithDeps {
		tables, err = graph.Closure(sch, tables)
		if err != nil {
			return err
		}
	}

	// Build dependency graph
	g := graph.Build(tables)

	loadOrder, err := g.LoadOrder()
	if err != nil {
		return fmt.Errorf("failed to generate load order: %w", err)
	}
	dropOrder, err := g.DropOrder()
	if err != nil {
		return fmt.Errorf("failed to generate drop order: %w", err)
	}

	// Print execution plan header
	printHeader("Execution Plan")

	// Overview
	fmt.Fprintln(outputWriter)
	printSection("Overview")
	fmt.Fprintf(outputWriter, "  Tables Selected: %d of %d\n", g.NodeCount(), sch.Len())
	fmt.Fprintf(outputWriter, "  Relationships:   %d\n", g.EdgeCount())
	fmt.Fprintf(outputWriter, "  Data Directory:  %s\n", cfg.Data.Directory)

	// Dependency tree
	fmt.Fprintln(outputWriter)
	printSection("Dependency Tree")
	printDependencyTree(g)

	// Load order section
	fmt.Fprintln(outputWriter)
	printSection("Load Order (referenced tables first)")
	for i, table := range loadOrder {
		printOrderItem(i+1, table, g, false)
	}

	// Drop order section
	fmt.Fprintln(outputWriter)
	printSection("Drop Order (referencing tables first)")
	for i, table := range dropOrder {
		printOrderItem(i+1, table, g, true)
	}

	// Relationships section
	fmt.Fprintln(outputWriter)
	printSection("Detected Relationships")
	for _, edge := range g.AllEdges() {
		col, _ := g.EdgeColumn(edge.From, edge.To)
		fmt.Fprintf(outputWriter, "  %s -> %s (FK column: %s)\n", edge.To, edge.From, col)
	}

	// Self-references are resolved within the table, not by ordering.
	var selfRefs []string
	for _, t := range tables {
		for _, c := range t.SelfRefColumns() {
			selfRefs = append(selfRefs, fmt.Sprintf("  %s.%s -> %s (deferred and replayed)", t.Name, c.Name, t.Name))
		}
	}
	if len(selfRefs) > 0 {
		fmt.Fprintln(outputWriter)
		printSection("Self-References")
		for _, line := range selfRefs {
			fmt.Fprintln(outputWriter, line)
		}
	}

	// Configuration section
	fmt.Fprintln(outputWriter)
	printSection("Configuration")
	fmt.Fprintf(outputWriter, "  Batch Size:          %d\n", cfg.Processing.BatchSize)
	fmt.Fprintf(outputWriter, "  Verification Method: %s\n", cfg.Verification.Method)
	fmt.Fprintf(outputWriter, "  Compression:         %s\n", cfg.Data.Compression)

	return nil
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}

// printOrderItem prints a table in the load/drop order list
func printOrderItem(num int, table string, g *graph.Graph, isDrop bool) {
	numStr := fmt.Sprintf("[%d]", num)

	parents := g.GetParents(table)
	if len(parents) == 0 {
		fmt.Fprintf(outputWriter, "  %s %s\n", numStr, table)
		return
	}

	arrow := "->"
	if isDrop {
		arrow = "<-"
	}
	fmt.Fprintf(outputWriter, "  %s %s %s %s\n",
		numStr, table, arrow, strings.Join(parents, ", "))
}

// printDependencyTree prints the graph as an indented tree rooted at tables
// with no parents inside the selection. Tables referenced by more than one
// table appear once per referent.
func printDependencyTree(g *graph.Graph) {
	var roots []string
	for _, n := range g.AllNodes() {
		if g.InDegree(n) == 0 {
			roots = append(roots, n)
		}
	}
	for _, root := range roots {
		printTreeNode(g, root, "  ", make(map[string]bool))
	}
}

func printTreeNode(g *graph.Graph, node, indent string, onPath map[string]bool) {
	fmt.Fprintf(outputWriter, "%s%s\n", indent, node)

	onPath[node] = true
	children := g.GetChildren(node)
	for i, child := range children {
		if onPath[child] {
			continue
		}
		connector := "├─ "
		childIndent := indent + "│  "
		if i == len(children)-1 {
			connector = "└─ "
			childIndent = indent + "   "
		}
		fmt.Fprintf(outputWriter, "%s%s", indent, connector)
		printTreeChild(g, child, childIndent, onPath)
	}
	delete(onPath, node)
}

func printTreeChild(g *graph.Graph, node, indent string, onPath map[string]bool) {
	fmt.Fprintf(outputWriter, "%s\n", node)

	onPath[node] = true
	children := g.GetChildren(node)
	for i, child := range children {
		if onPath[child] {
			continue
		}
		connector := "├─ "
		childIndent := indent + "│  "
		if i == len(children)-1 {
			connector = "└─ "
			childIndent = indent + "   "
		}
		fmt.Fprintf(outputWriter, "%s%s", indent, connector)
		printTreeChild(g, child, childIndent, onPath)
	}
	delete(onPath, node)
}
