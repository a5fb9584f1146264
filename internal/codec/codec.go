// Package codec converts text fields to and from column values.
//
// The rules are column-driven and symmetric: an empty field in a nullable
// column is NULL, boolean columns use "0"/"1", and everything else is
// carried as UTF-8 text for the database to coerce.
package codec

import (
	"fmt"
	"strconv"

	"github.com/dbsmedya/tableferry/internal/schema"
)

// Decode converts a text field read from a table file into the value bound
// to an insert parameter. It returns nil (NULL), bool, or string.
func Decode(col *schema.Column, field string) interface{} {
	if col.Nullable && field == "" {
		// Empty string in a nullable column really means NULL
		return nil
	}
	if col.Type == schema.TypeBoolean {
		// Booleans are stored as "0"/"1", but both are truthy strings;
		// only "0" means false.
		return field != "0"
	}
	return field
}

// Encode converts a value scanned from the database into its text form for
// a table file. Inverse of Decode for every value Decode can produce.
func Encode(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Key returns the canonical string identity of a decoded value. It is used
// for seen-key membership during self-reference resolution and for row
// canonicalization during verification. The empty string is the identity of
// NULL.
func Key(v interface{}) string {
	return Encode(v)
}
