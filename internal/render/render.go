// Package render writes tailed lines to a terminal, highlighting filter
// matches the way the interactive viewer marks search hits.
package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/rzbill/flow/internal/linebuf"
)

// highlightStyle marks matched spans. Black on yellow reads on both light and
// dark terminals.
var highlightStyle = ansi.ColorFunc("black:yellow")

// Renderer writes lines to an output writer.
type Renderer struct {
	w         io.Writer
	highlight bool
	rule      *regexp.Regexp
}

// New creates a Renderer. rule may be nil; when set and highlight is on,
// matched spans are colored.
func New(w io.Writer, highlight bool, rule *regexp.Regexp) *Renderer {
	return &Renderer{w: w, highlight: highlight, rule: rule}
}

// Line writes one line, with match highlighting when enabled.
func (r *Renderer) Line(ln linebuf.Line) error {
	text := ln.Text
	if r.highlight && r.rule != nil {
		text = Highlight(text, linebuf.MatchOffsets(r.rule, text))
	}
	_, err := fmt.Fprintln(r.w, text)
	return err
}

// Lines writes a batch in order.
func (r *Renderer) Lines(lines []linebuf.Line) error {
	for _, ln := range lines {
		if err := r.Line(ln); err != nil {
			return err
		}
	}
	return nil
}

// Highlight wraps each offset span of text in the highlight style. Offsets
// must be ordered, non-overlapping byte index pairs, as produced by
// linebuf.MatchOffsets.
func Highlight(text string, offsets [][]int) string {
	if len(offsets) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, span := range offsets {
		if len(span) != 2 || span[0] < prev || span[1] > len(text) {
			continue
		}
		b.WriteString(text[prev:span[0]])
		b.WriteString(highlightStyle(text[span[0]:span[1]]))
		prev = span[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}
