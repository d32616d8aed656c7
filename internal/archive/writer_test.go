package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rzbill/flow/internal/linebuf"
)

func sessionTexts(t *testing.T, s *Session) []string {
	t.Helper()
	entries, err := s.Read(ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var texts []string
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return texts
}

func TestWriterCoalescesIntoBatches(t *testing.T) {
	arch := newTestArchive(t)
	sess, err := arch.StartSession("in.log")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := NewWriter(sess, 3)
	ctx := context.Background()
	for _, txt := range []string{"a", "b"} {
		if err := w.Add(ctx, linebuf.Line{Text: txt, TimeMs: 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	// Below the batch size nothing is committed yet.
	if got := sessionTexts(t, sess); len(got) != 0 {
		t.Fatalf("committed early: %v", got)
	}
	if w.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", w.Pending())
	}

	// The third line fills the batch and commits all of it.
	if err := w.Add(ctx, linebuf.Line{Text: "c", TimeMs: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, sessionTexts(t, sess)); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	if w.Pending() != 0 {
		t.Fatalf("pending = %d after commit, want 0", w.Pending())
	}
}

func TestWriterFlushCommitsPartialBatch(t *testing.T) {
	arch := newTestArchive(t)
	sess, err := arch.StartSession("in.log")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := NewWriter(sess, 100)
	ctx := context.Background()
	if err := w.Add(ctx, linebuf.Line{Text: "only", TimeMs: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if diff := cmp.Diff([]string{"only"}, sessionTexts(t, sess)); diff != "" {
		t.Fatalf("flush mismatch (-want +got):\n%s", diff)
	}

	// Flushing with nothing pending is a no-op.
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
}

func TestWriterRunFlusherDrainsPeriodically(t *testing.T) {
	arch := newTestArchive(t)
	sess, err := arch.StartSession("in.log")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := NewWriter(sess, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunFlusher(ctx, 5*time.Millisecond) }()

	if err := w.Add(ctx, linebuf.Line{Text: "tick", TimeMs: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Pending() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if w.Pending() != 0 {
		t.Fatalf("flusher never drained the pending line")
	}
	if diff := cmp.Diff([]string{"tick"}, sessionTexts(t, sess)); diff != "" {
		t.Fatalf("flushed entry mismatch (-want +got):\n%s", diff)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("flusher: %v", err)
	}
}
