package transfer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_PadsNameToStatusColumn(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Start("pokemon")
	p.Done("ok")

	// The ellipsis follows the name on every line; padding keeps the
	// status token in a fixed column.
	line := strings.TrimRight(buf.String(), "\n")
	assert.Equal(t, "pokemon..."+strings.Repeat(" ", nameColumn-len("pokemon"))+" ok", line)
}

func TestProgress_EllipsisOnEveryLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Start("moves")
	p.Done("missing?")
	p.Start("types")
	p.Done("ok")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "moves..."))
	assert.True(t, strings.HasPrefix(lines[1], "types..."))
}

func TestProgress_TruncatesLongNames(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	long := strings.Repeat("x", 100)
	p.Start(long)
	p.Done("ok")

	line := strings.TrimRight(buf.String(), "\n")
	assert.True(t, strings.HasPrefix(line, strings.Repeat("x", nameColumn)+"..."))
	assert.True(t, strings.HasSuffix(line, " ok"))
	assert.NotContains(t, line, strings.Repeat("x", nameColumn+1))
}

func TestProgress_MissingToken(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Start("berries")
	p.Done("missing?")

	assert.True(t, strings.HasSuffix(strings.TrimRight(buf.String(), "\n"), " missing?"))
}

func TestProgress_DisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Start("pokemon")
	p.Done("ok")
	p.Line("summary %d", 1)

	assert.Empty(t, buf.String())
}
