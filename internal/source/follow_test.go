package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestReadWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	writeFile(t, path, "one\ntwo\nthree\n")

	var got []string
	tl := New(Options{Path: path})
	err := tl.Run(context.Background(), func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two", "three"}, got); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestTrailingPartialEmittedAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	writeFile(t, path, "done\npartial")

	var got []string
	tl := New(Options{Path: path})
	if err := tl.Run(context.Background(), func(line string) error {
		got = append(got, line)
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"done", "partial"}, got); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestEmitErrorAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	writeFile(t, path, "a\nb\n")

	boom := errors.New("boom")
	tl := New(Options{Path: path})
	err := tl.Run(context.Background(), func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want emit error, got %v", err)
	}
}

func TestNoInput(t *testing.T) {
	tl := New(Options{})
	if err := tl.Run(context.Background(), func(string) error { return nil }); !errors.Is(err, ErrNoInput) {
		t.Fatalf("want ErrNoInput, got %v", err)
	}
}

func TestFollowPicksUpAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	writeFile(t, path, "first\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	done := make(chan error, 1)
	tl := New(Options{Path: path, Follow: true, PollInterval: 5 * time.Millisecond})
	go func() {
		done <- tl.Run(ctx, func(line string) error {
			lines <- line
			return nil
		})
	}()

	waitLine := func(want string) {
		t.Helper()
		select {
		case got := <-lines:
			if got != want {
				t.Fatalf("got %q want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	waitLine("first")
	appendFile(t, path, "second\n")
	waitLine("second")

	// a fragment must be held until its newline arrives
	appendFile(t, path, "par")
	appendFile(t, path, "tial\n")
	waitLine("partial")

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("tailer did not stop on cancel")
	}
}

func TestFollowDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	writeFile(t, path, strings.Repeat("old\n", 10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 64)
	tl := New(Options{Path: path, Follow: true, PollInterval: 5 * time.Millisecond})
	go func() {
		_ = tl.Run(ctx, func(line string) error {
			lines <- line
			return nil
		})
	}()

	// drain the initial contents
	for i := 0; i < 10; i++ {
		select {
		case <-lines:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out draining initial lines")
		}
	}

	// truncate and rewrite
	writeFile(t, path, "fresh\n")
	select {
	case got := <-lines:
		if got != "fresh" {
			t.Fatalf("got %q want %q after truncation", got, "fresh")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for post-truncation line")
	}
}

func TestFollowInitialEOFHook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.log")
	writeFile(t, path, "one\ntwo\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{})
	var got []string
	tl := New(Options{
		Path:         path,
		Follow:       true,
		PollInterval: 5 * time.Millisecond,
		InitialEOF:   func() { close(fired) },
	})
	go func() {
		_ = tl.Run(ctx, func(line string) error {
			got = append(got, line)
			return nil
		})
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("InitialEOF never fired")
	}
	// The hook fires only after the existing content was read through.
	if len(got) != 2 {
		t.Fatalf("emitted %d lines before InitialEOF, want 2", len(got))
	}
}

func TestFollowDetectsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.log")
	writeFile(t, path, "before\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 16)
	tl := New(Options{Path: path, Follow: true, PollInterval: 5 * time.Millisecond})
	go func() {
		_ = tl.Run(ctx, func(line string) error {
			lines <- line
			return nil
		})
	}()

	select {
	case <-lines:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out on initial line")
	}

	// rotate: rename away and create a new file at the same path
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	writeFile(t, path, "after\n")

	select {
	case got := <-lines:
		if got != "after" {
			t.Fatalf("got %q want %q after rotation", got, "after")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for post-rotation line")
	}
}
