package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rzbill/flow/internal/linebuf"
	pebblestore "github.com/rzbill/flow/internal/storage/pebble"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       t.TempDir(),
		Fsync:         pebblestore.FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return Open(db)
}

func appendLines(t *testing.T, s *Session, texts ...string) {
	t.Helper()
	lines := make([]linebuf.Line, len(texts))
	for i, txt := range texts {
		lines[i] = linebuf.Line{Text: txt, TimeMs: int64(i + 1)}
	}
	if err := s.Append(context.Background(), lines); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func entryTexts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestAppendRead(t *testing.T) {
	a := newTestArchive(t)
	s, err := a.StartSession("/var/log/test.log")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	appendLines(t, s, "a", "b", "c")

	entries, err := s.Read(ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, entryTexts(entries)); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
	if entries[0].Seq != 1 || entries[2].Seq != 3 {
		t.Fatalf("sequences: %+v", entries)
	}
}

func TestReadReverseAndLimit(t *testing.T) {
	a := newTestArchive(t)
	s, _ := a.StartSession("in")
	appendLines(t, s, "a", "b", "c", "d")

	entries, err := s.Read(ReadOptions{Limit: 2, Reverse: true})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"d", "c"}, entryTexts(entries)); diff != "" {
		t.Fatalf("reverse read (-want +got):\n%s", diff)
	}

	entries, err = s.Read(ReadOptions{Start: 2, Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, entryTexts(entries)); diff != "" {
		t.Fatalf("start read (-want +got):\n%s", diff)
	}
}

func TestSequencesSurviveReopen(t *testing.T) {
	a := newTestArchive(t)
	s, _ := a.StartSession("in")
	appendLines(t, s, "x")

	s2, err := a.OpenSession(s.ID())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	appendLines(t, s2, "y")
	entries, _ := s2.Read(ReadOptions{})
	if len(entries) != 2 || entries[1].Seq != 2 {
		t.Fatalf("sequence should continue after reopen: %+v", entries)
	}
}

func TestOpenMissingSession(t *testing.T) {
	a := newTestArchive(t)
	s, _ := a.StartSession("in")
	bogus := s.ID()
	bogus[15] ^= 0xff
	if _, err := a.OpenSession(bogus); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestSessionsChronological(t *testing.T) {
	a := newTestArchive(t)
	s1, _ := a.StartSession("one")
	s2, _ := a.StartSession("two")
	appendLines(t, s2, "x")

	infos, err := a.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(infos))
	}
	if infos[0].ID != s1.ID().String() || infos[1].ID != s2.ID().String() {
		t.Fatalf("order: %+v", infos)
	}
	if infos[1].LastSeq != 1 {
		t.Fatalf("last seq not surfaced: %+v", infos[1])
	}

	latest, err := a.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != s2.ID().String() {
		t.Fatalf("latest should be newest: %+v", latest)
	}
}

func TestLatestEmpty(t *testing.T) {
	a := newTestArchive(t)
	if _, err := a.Latest(); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestTrimToMaxCount(t *testing.T) {
	a := newTestArchive(t)
	s, _ := a.StartSession("in")
	var texts []string
	for i := 1; i <= 10; i++ {
		texts = append(texts, fmt.Sprintf("line-%d", i))
	}
	appendLines(t, s, texts...)

	deleted, err := s.TrimToMaxCount(context.Background(), 3, 2)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("want 7 deleted, got %d", deleted)
	}
	entries, _ := s.Read(ReadOptions{})
	if diff := cmp.Diff([]string{"line-8", "line-9", "line-10"}, entryTexts(entries)); diff != "" {
		t.Fatalf("survivors (-want +got):\n%s", diff)
	}

	// under the bound: no-op
	deleted, err = s.TrimToMaxCount(context.Background(), 5, 0)
	if err != nil || deleted != 0 {
		t.Fatalf("no-op trim: deleted=%d err=%v", deleted, err)
	}
}

func TestCount(t *testing.T) {
	a := newTestArchive(t)
	s, _ := a.StartSession("in")
	appendLines(t, s, "a", "b")
	n, err := s.Count()
	if err != nil || n != 2 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}
