// Package transfer implements the load and dump engines: streaming table
// files through the codec, the self-reference resolver, and the batched
// writer in foreign-key dependency order.
package transfer

import (
	"fmt"

	"github.com/dbsmedya/tableferry/internal/codec"
	"github.com/dbsmedya/tableferry/internal/schema"
)

// Record maps column names to decoded values for a single row.
// Values are nil (NULL), bool, or string, exactly what the codec produces.
type Record map[string]interface{}

// decodeRow decodes one line of fields against the table's schema, in
// header order. Rows shorter than the header leave trailing columns NULL;
// a missing value for a non-nullable column is an error.
func decodeRow(table *schema.Table, header []string, fields []string) (Record, error) {
	if len(fields) > len(header) {
		return nil, fmt.Errorf("table %q: row has %d fields but header has %d columns",
			table.Name, len(fields), len(header))
	}

	rec := make(Record, len(header))
	for i, name := range header {
		col, ok := table.Column(name)
		if !ok {
			return nil, fmt.Errorf("table %q: unknown column %q in header", table.Name, name)
		}

		if i >= len(fields) {
			if !col.Nullable {
				return nil, fmt.Errorf("table %q: row is missing value for non-nullable column %q",
					table.Name, name)
			}
			rec[name] = nil
			continue
		}

		rec[name] = codec.Decode(col, fields[i])
	}
	return rec, nil
}

// validateHeader checks that every header name is a column of the table.
func validateHeader(table *schema.Table, header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("table %q: file has an empty header", table.Name)
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if _, ok := table.Column(name); !ok {
			return fmt.Errorf("table %q: unknown column %q in header", table.Name, name)
		}
		if seen[name] {
			return fmt.Errorf("table %q: duplicate column %q in header", table.Name, name)
		}
		seen[name] = true
	}
	return nil
}
