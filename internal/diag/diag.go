// Package diag renders checker diagnostics against their source text,
// with ANSI color when the destination is a terminal.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/lumenlang/lumen/internal/checker"
	"github.com/lumenlang/lumen/internal/pos"
)

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Renderer writes diagnostics to an output stream.
type Renderer struct {
	out   io.Writer
	color bool
}

// New builds a renderer for out. Color is enabled automatically when
// out is a terminal.
func New(out io.Writer) *Renderer {
	color := false
	type fder interface{ Fd() uintptr }
	if f, ok := out.(fder); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{out: out, color: color}
}

// WithColor overrides terminal detection.
func (r *Renderer) WithColor(on bool) *Renderer {
	r.color = on
	return r
}

// Render writes every error with its location in src and the offending
// source line underneath.
func (r *Renderer) Render(file, src string, errs checker.Errors) {
	for _, e := range errs {
		r.renderOne(file, src, e)
	}
}

func (r *Renderer) renderOne(file, src string, e checker.Error) {
	loc := pos.LocationAt(src, e.Span.Start)
	head := fmt.Sprintf("%s:%s: ", file, loc)
	if r.color {
		fmt.Fprintf(r.out, "%s%s%serror:%s %s\n", ansiBold, head, ansiRed, ansiReset, e.Err)
	} else {
		fmt.Fprintf(r.out, "%serror: %s\n", head, e.Err)
	}

	line := sourceLine(src, e.Span.Start)
	if line == "" {
		return
	}
	fmt.Fprintf(r.out, "  %s\n", line)
	width := int(e.Span.End - e.Span.Start)
	if width < 1 {
		width = 1
	}
	if rest := len(line) - (loc.Column - 1); width > rest && rest > 0 {
		width = rest
	}
	marker := strings.Repeat(" ", loc.Column-1) + strings.Repeat("^", width)
	if r.color {
		fmt.Fprintf(r.out, "  %s%s%s\n", ansiRed, marker, ansiReset)
	} else {
		fmt.Fprintf(r.out, "  %s\n", marker)
	}
}

func sourceLine(src string, p pos.BytePos) string {
	if int(p) > len(src) {
		return ""
	}
	start := strings.LastIndexByte(src[:p], '\n') + 1
	end := strings.IndexByte(src[start:], '\n')
	if end < 0 {
		return src[start:]
	}
	return src[start : start+end]
}
