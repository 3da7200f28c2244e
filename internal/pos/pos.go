// Package pos defines source positions and spans used to tag AST nodes
// and diagnostics.
package pos

import "fmt"

// BytePos is an absolute byte offset into a source file.
type BytePos int

// Location is a human-readable position (1-based line, 1-based column).
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Span is a half-open byte range [Start, End) in one source file.
type Span struct {
	Start BytePos
	End   BytePos
}

func NewSpan(start, end BytePos) Span {
	return Span{Start: start, End: end}
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Contains reports whether p falls inside the span.
func (s Span) Contains(p BytePos) bool {
	return p >= s.Start && p < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Spanned pairs a value with the span of source text it came from.
type Spanned[T any] struct {
	Span  Span
	Value T
}

func At[T any](span Span, value T) Spanned[T] {
	return Spanned[T]{Span: span, Value: value}
}

// LocationAt converts a byte offset into a line/column location by
// scanning the source text. Offsets past the end clamp to the last line.
func LocationAt(src string, p BytePos) Location {
	line, col := 1, 1
	for i := 0; i < len(src) && BytePos(i) < p; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Location{Line: line, Column: col}
}
