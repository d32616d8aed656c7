package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReaderEmitsLines(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("one\ntwo\n"))
		pw.Close()
	}()

	var got []string
	tl := New(Options{Path: StdinPath})
	err := tl.runReader(context.Background(), pr, func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("runReader: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestReaderCancelUnblocksRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string, 1)
	done := make(chan error, 1)
	tl := New(Options{Path: StdinPath})
	go func() {
		done <- tl.runReader(ctx, pr, func(line string) error {
			lines <- line
			return nil
		})
	}()

	// One line flows through, then the pipe goes quiet with no EOF.
	if _, err := pw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-lines:
		if got != "hello" {
			t.Fatalf("got %q want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runReader did not return after cancel while blocked")
	}
}
