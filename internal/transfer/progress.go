package transfer

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// nameColumn is the display width table names are padded or truncated to so
// that status tokens line up in a column.
const nameColumn = 66

// Progress prints per-table status lines during a verbose load or dump:
// the table name padded to a fixed column, then "ok" or "missing?".
// When disabled every method is a no-op.
type Progress struct {
	out     io.Writer
	enabled bool
	plain   bool
}

// NewProgress creates a progress reporter writing to out. Colored status
// tokens are only used when writing directly to the terminal; any other
// writer gets plain text.
func NewProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{
		out:     out,
		enabled: enabled,
		plain:   out != os.Stdout,
	}
}

// Start prints the table name truncated to the name column, an ellipsis,
// and padding so the status token lands in a known column, without a
// trailing newline. Done completes the line.
func (p *Progress) Start(table string) {
	if !p.enabled {
		return
	}
	name := runewidth.Truncate(table, nameColumn, "")
	fmt.Fprintf(p.out, "%s ", runewidth.FillRight(name+"...", nameColumn+3))
}

// Done completes the current line with a status token.
func (p *Progress) Done(status string) {
	if !p.enabled {
		return
	}
	if p.plain {
		fmt.Fprintln(p.out, status)
		return
	}
	switch status {
	case "ok":
		fmt.Fprintln(p.out, color.Green.Render(status))
	case "missing?":
		fmt.Fprintln(p.out, color.Yellow.Render(status))
	default:
		fmt.Fprintln(p.out, status)
	}
}

// Line prints a standalone message on its own line.
func (p *Progress) Line(format string, args ...interface{}) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}
