package diag

import (
	"errors"
	"strings"
	"testing"

	"github.com/lumenlang/lumen/internal/checker"
	"github.com/lumenlang/lumen/internal/pos"
)

func TestRenderPlain(t *testing.T) {
	src := "let x = nope\n"
	errs := checker.Errors{{
		Span: pos.NewSpan(8, 12),
		Err:  errors.New("undefined variable nope"),
	}}
	var out strings.Builder
	New(&out).Render("main.lm", src, errs)

	got := out.String()
	if !strings.Contains(got, "main.lm:1:9: error: undefined variable nope") {
		t.Fatalf("header missing:\n%s", got)
	}
	if !strings.Contains(got, "let x = nope") {
		t.Fatalf("source line missing:\n%s", got)
	}
	if !strings.Contains(got, "        ^^^^") {
		t.Fatalf("caret marker missing:\n%s", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("color codes written to a non-terminal:\n%s", got)
	}
}

func TestRenderColorForced(t *testing.T) {
	src := "x\n"
	errs := checker.Errors{{Span: pos.NewSpan(0, 1), Err: errors.New("boom")}}
	var out strings.Builder
	New(&out).WithColor(true).Render("f.lm", src, errs)
	if !strings.Contains(out.String(), "\x1b[31m") {
		t.Fatal("forced color produced no escape codes")
	}
}

func TestRenderMultipleErrors(t *testing.T) {
	src := "a\nb\n"
	errs := checker.Errors{
		{Span: pos.NewSpan(0, 1), Err: errors.New("first")},
		{Span: pos.NewSpan(2, 3), Err: errors.New("second")},
	}
	var out strings.Builder
	New(&out).Render("m.lm", src, errs)
	got := out.String()
	if !strings.Contains(got, "m.lm:1:1") || !strings.Contains(got, "m.lm:2:1") {
		t.Fatalf("both locations expected:\n%s", got)
	}
}
