package schema

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// translateGlob converts a single wildcard glob to a regex string.
// `*` matches any run of characters, `?` matches at most one character,
// and everything else is literal. A filename-like glob (containing a path
// separator or extension) is reduced to its base name without extension.
func translateGlob(glob string) string {
	if strings.ContainsAny(glob, "./") {
		base := filepath.Base(glob)
		glob = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var sb strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".?")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String()
}

// compileSelector converts a list of wildcard globs to a single anchored,
// case-sensitive regex matching any of them.
func compileSelector(globs []string) (*regexp.Regexp, error) {
	parts := make([]string, len(globs))
	for i, g := range globs {
		parts[i] = translateGlob(g)
	}

	re, err := regexp.Compile("^(?:" + strings.Join(parts, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid table selector: %w", err)
	}
	return re, nil
}

// Select returns the tables whose names match any of the given wildcard
// patterns, in schema definition order. An empty pattern list selects all
// tables.
func (s *Schema) Select(patterns []string) ([]*Table, error) {
	if len(patterns) == 0 {
		return s.Tables(), nil
	}

	re, err := compileSelector(patterns)
	if err != nil {
		return nil, err
	}

	var out []*Table
	for _, t := range s.Tables() {
		if re.MatchString(t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}
