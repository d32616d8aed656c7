package render

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/rzbill/flow/internal/linebuf"
)

func TestHighlightWrapsSpans(t *testing.T) {
	got := Highlight("an ERROR here", [][]int{{3, 8}})
	if !strings.Contains(got, "ERROR") {
		t.Fatalf("match text lost: %q", got)
	}
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected ANSI escapes: %q", got)
	}
	if !strings.HasPrefix(got, "an ") || !strings.HasSuffix(got, " here") {
		t.Fatalf("surrounding text altered: %q", got)
	}
}

func TestHighlightNoOffsets(t *testing.T) {
	if got := Highlight("plain", nil); got != "plain" {
		t.Fatalf("no-op expected: %q", got)
	}
}

func TestHighlightMultipleSpans(t *testing.T) {
	text := "x y x"
	got := Highlight(text, [][]int{{0, 1}, {4, 5}})
	if strings.Count(got, "\x1b[0m") != 2 {
		t.Fatalf("want two reset sequences: %q", got)
	}
}

func TestRendererPlain(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false, regexp.MustCompile("ERROR"))
	if err := r.Line(linebuf.Line{Text: "an ERROR here"}); err != nil {
		t.Fatalf("line: %v", err)
	}
	if buf.String() != "an ERROR here\n" {
		t.Fatalf("plain output should carry no escapes: %q", buf.String())
	}
}

func TestRendererHighlights(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true, regexp.MustCompile("ERROR"))
	if err := r.Lines([]linebuf.Line{{Text: "ok"}, {Text: "ERROR"}}); err != nil {
		t.Fatalf("lines: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected highlighting: %q", out)
	}
	if !strings.HasPrefix(out, "ok\n") {
		t.Fatalf("non-matching line altered: %q", out)
	}
}
