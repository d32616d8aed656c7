package linebuf

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSearchFindsOffsets(t *testing.T) {
	b := New(10)
	b.Append("ok")
	b.Append("ERROR one ERROR two")
	b.Append("fine")
	b.Append("an ERROR")

	got := b.Search(regexp.MustCompile("ERROR"), 0)
	if len(got) != 2 {
		t.Fatalf("want 2 matching lines, got %d", len(got))
	}
	wantOffsets := [][]int{{0, 5}, {10, 15}}
	if diff := cmp.Diff(wantOffsets, got[0].Offsets); diff != "" {
		t.Fatalf("offsets (-want +got):\n%s", diff)
	}
	if got[1].Line.Text != "an ERROR" {
		t.Fatalf("unexpected second match: %q", got[1].Line.Text)
	}
}

func TestSearchLimit(t *testing.T) {
	b := New(10)
	for i := 0; i < 5; i++ {
		b.Append("hit")
	}
	if got := len(b.Search(regexp.MustCompile("hit"), 2)); got != 2 {
		t.Fatalf("limit not honored: %d", got)
	}
}

func TestMatchOffsetsNilPattern(t *testing.T) {
	if MatchOffsets(nil, "anything") != nil {
		t.Fatalf("nil pattern should not match")
	}
}
