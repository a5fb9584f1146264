package graph

import (
	"fmt"

	"github.com/dbsmedya/tableferry/internal/schema"
)

// Closure expands a table selection to include every table it transitively
// references through foreign keys. The result preserves schema definition
// order and never contains duplicates.
func Closure(s *schema.Schema, tables []*schema.Table) ([]*schema.Table, error) {
	include := make(map[string]bool, len(tables))

	// BFS over foreign-key targets.
	queue := make([]*schema.Table, 0, len(tables))
	for _, t := range tables {
		if !include[t.Name] {
			include[t.Name] = true
			queue = append(queue, t)
		}
	}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		for _, c := range t.Columns {
			if c.References == nil || c.References.Table == t.Name {
				continue
			}
			if include[c.References.Table] {
				continue
			}
			target, ok := s.Table(c.References.Table)
			if !ok {
				return nil, fmt.Errorf("table %q references unknown table %q", t.Name, c.References.Table)
			}
			include[target.Name] = true
			queue = append(queue, target)
		}
	}

	var out []*schema.Table
	for _, t := range s.Tables() {
		if include[t.Name] {
			out = append(out, t)
		}
	}
	return out, nil
}
