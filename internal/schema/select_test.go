package schema

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/tableferry/internal/config"
)

func selectTestSchema(t *testing.T) *Schema {
	t.Helper()
	cfg := &config.SchemaConfig{}
	for _, name := range []string{"pokemon", "pokemon_types", "pokemon_moves", "types", "moves"} {
		cfg.Tables = append(cfg.Tables, config.TableConfig{
			Name:       name,
			Columns:    []config.ColumnConfig{{Name: "id", Type: "integer"}},
			PrimaryKey: []string{"id"},
		})
	}
	s, err := Build(cfg)
	require.NoError(t, err)
	return s
}

func tableNames(tables []*Table) []string {
	if len(tables) == 0 {
		return nil
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

func TestSelect(t *testing.T) {
	s := selectTestSchema(t)

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"empty selects all in definition order", nil,
			[]string{"pokemon", "pokemon_types", "pokemon_moves", "types", "moves"}},
		{"exact name", []string{"types"}, []string{"types"}},
		{"star wildcard", []string{"pokemon*"},
			[]string{"pokemon", "pokemon_types", "pokemon_moves"}},
		{"question mark matches at most one character", []string{"move?"}, []string{"moves"}},
		{"question mark matches zero characters", []string{"moves?"}, []string{"moves"}},
		{"multiple patterns union in definition order", []string{"moves", "types"},
			[]string{"types", "moves"}},
		{"filename reduces to base name without extension", []string{"data/pokemon.csv"},
			[]string{"pokemon"}},
		{"no match selects nothing", []string{"berries"}, nil},
		{"case sensitive", []string{"Pokemon"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Select(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tableNames(got))
		})
	}
}

func TestTranslateGlob(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"pokemon", "pokemon"},
		{"pokemon*", "pokemon.*"},
		{"move?", "move.?"},
		{"a+b", `a\+b`},
		{"data/pokemon.csv", "pokemon"},
		{"pokemon.csv.sz", `pokemon\.csv`},
	}

	for _, tt := range tests {
		t.Run(tt.glob, func(t *testing.T) {
			assert.Equal(t, tt.want, translateGlob(tt.glob))
		})
	}
}

func TestTranslateGlob_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	identGen := gen.RegexMatch("[a-z_][a-z0-9_]{0,20}")

	properties.Property("a plain name matches itself and only itself", prop.ForAll(
		func(name string) bool {
			re, err := compileSelector([]string{name})
			if err != nil {
				return false
			}
			return re.MatchString(name) && !re.MatchString(name+"x") && !re.MatchString("x"+name)
		},
		identGen,
	))

	properties.Property("name* matches any suffix extension", prop.ForAll(
		func(name, suffix string) bool {
			re, err := compileSelector([]string{name + "*"})
			if err != nil {
				return false
			}
			return re.MatchString(name) && re.MatchString(name+suffix)
		},
		identGen, identGen,
	))

	properties.Property("translated globs always compile", prop.ForAll(
		func(glob string) bool {
			_, err := regexp.Compile("^(?:" + translateGlob(glob) + ")$")
			return err == nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
