// Package graph provides the table dependency graph and ordering algorithms
// for tableferry.
package graph

import (
	"github.com/dbsmedya/tableferry/internal/schema"
)

// Edge represents a dependency relationship between tables: From must be
// loaded before To because To carries a foreign key into From.
type Edge struct {
	From string // Referenced (parent) table name
	To   string // Referencing (child) table name
}

// Graph represents the foreign-key dependency structure for a selected set
// of tables. Self-referential foreign keys never become graph edges; they
// are the resolver's concern.
type Graph struct {
	nodes    []string // selected table names, schema definition order
	nodeSet  map[string]bool
	Children map[string][]string // table name -> dependent table names (outgoing edges)
	Parents  map[string][]string // table name -> referenced table names (incoming edges)
	edges    map[Edge]string     // edge -> FK column that induced it
}

// Build constructs the dependency graph for the given tables. One edge
// referenced -> referencing is added per foreign key whose both ends are in
// the selection. Edges are deduplicated: two FK columns between the same
// pair of tables produce a single edge.
func Build(tables []*schema.Table) *Graph {
	g := &Graph{
		nodeSet:  make(map[string]bool, len(tables)),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edges:    make(map[Edge]string),
	}

	for _, t := range tables {
		g.nodes = append(g.nodes, t.Name)
		g.nodeSet[t.Name] = true
	}

	for _, t := range tables {
		for _, c := range t.Columns {
			if c.References == nil || c.References.Table == t.Name {
				continue
			}
			if !g.nodeSet[c.References.Table] {
				// Target outside the selection; ordering within the
				// selection is unaffected.
				continue
			}
			g.addEdge(c.References.Table, t.Name, c.Name)
		}
	}

	return g
}

// addEdge adds a parent -> child relationship, maintaining the reverse
// mapping for efficient parent lookups.
func (g *Graph) addEdge(parent, child, fkColumn string) {
	e := Edge{From: parent, To: child}
	if _, exists := g.edges[e]; exists {
		return
	}
	g.edges[e] = fkColumn

	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// GetChildren returns all tables directly depending on the given table.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all tables the given table directly depends on.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// HasNode returns true if the graph contains the given table.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// NodeCount returns the number of tables in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AllNodes returns all table names in schema definition order.
func (g *Graph) AllNodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// AllEdges returns a slice of all edges, in node order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, parent := range g.nodes {
		for _, child := range g.Children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

// EdgeColumn returns the FK column that induced the edge, if any.
func (g *Graph) EdgeColumn(parent, child string) (string, bool) {
	col, ok := g.edges[Edge{From: parent, To: child}]
	return col, ok
}

// InDegree returns the number of incoming edges (referenced tables) for a node.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of outgoing edges (dependent tables) for a node.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
