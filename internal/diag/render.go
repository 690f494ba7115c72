package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"rill/internal/source"
)

// RenderOpts controls how Render prints a bag.
type RenderOpts struct {
	Color     bool
	WithNotes bool
}

// DetectColor decides whether stdout wants ANSI colors.
func DetectColor(mode string) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

// Render prints every diagnostic as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline when the file's content
// is available, then notes in the same format. Call bag.SortStable() first
// for deterministic output.
func Render(w io.Writer, bag *Bag, fs *source.FileSet, opts RenderOpts) {
	if bag == nil {
		return
	}
	sevColors := map[Severity]*color.Color{
		SevInfo:    color.New(color.FgCyan),
		SevWarning: color.New(color.FgYellow, color.Bold),
		SevError:   color.New(color.FgRed, color.Bold),
	}
	for _, d := range bag.Items() {
		writeHeader(w, fs, d.Primary, d.Severity, d.Code, d.Message, sevColors, opts)
		writeContext(w, fs, d.Primary)
		if opts.WithNotes {
			for _, n := range d.Notes {
				writeHeader(w, fs, n.Span, SevInfo, d.Code, "note: "+n.Msg, sevColors, opts)
				writeContext(w, fs, n.Span)
			}
		}
	}
}

func writeHeader(w io.Writer, fs *source.FileSet, sp source.Span, sev Severity, code Code, msg string, sevColors map[Severity]*color.Color, opts RenderOpts) {
	loc := formatLocation(fs, sp)
	sevText := sev.String()
	if opts.Color {
		if c, ok := sevColors[sev]; ok {
			sevText = c.Sprint(sevText)
		}
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sevText, code, msg)
}

func formatLocation(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return sp.String()
	}
	path, lc := fs.Position(sp)
	if lc.Line == 0 {
		// Contentless file: fall back to byte offsets.
		return fmt.Sprintf("%s:@%d", path, sp.Start)
	}
	return fmt.Sprintf("%s:%d:%d", path, lc.Line, lc.Col)
}

// writeContext prints the offending line plus a caret underline. Widths are
// measured with runewidth so the carets stay aligned under wide runes.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span) {
	if fs == nil {
		return
	}
	path, lc := fs.Position(sp)
	_ = path
	if lc.Line == 0 {
		return
	}
	text, ok := fs.LineText(sp.File, lc.Line)
	if !ok {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)
	prefixEnd := int(lc.Col) - 1
	if prefixEnd > len(text) {
		prefixEnd = len(text)
	}
	pad := runewidth.StringWidth(text[:prefixEnd])
	underline := int(sp.Len())
	if underline < 1 {
		underline = 1
	}
	if rest := len(text) - prefixEnd; underline > rest && rest > 0 {
		underline = rest
	}
	fmt.Fprintf(w, "  %s^%s\n", strings.Repeat(" ", pad), strings.Repeat("~", underline-1))
}
