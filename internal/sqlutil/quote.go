// Package sqlutil provides SQL dialect utilities for tableferry.
package sqlutil

import (
	"regexp"
)

// validIdentifierRegex matches valid identifier characters.
// Identifiers are restricted to alphanumeric and underscore only as a
// defense-in-depth measure against SQL injection.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid SQL identifier.
// It validates that the name only contains alphanumeric characters and underscores.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
