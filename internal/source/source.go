package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	logpkg "github.com/rzbill/flow/pkg/log"
)

// StdinPath is the input argument selecting standard input.
const StdinPath = "-"

// ErrNoInput is returned when Options.Path is empty.
var ErrNoInput = errors.New("source: no input path")

// Options configures a Tailer.
type Options struct {
	// Path is the input file, or "-" for stdin.
	Path string
	// Follow keeps reading appended data after the first EOF.
	Follow bool
	// PollInterval paces growth checks in follow mode. Default 50ms.
	PollInterval time.Duration
	// InitialEOF, when set, is called once after the first read through the
	// existing content in follow mode, before waiting for growth.
	InitialEOF func()
	// Logger is optional.
	Logger logpkg.Logger
}

// Tailer reads an input source line by line, optionally following growth.
type Tailer struct {
	opts   Options
	logger logpkg.Logger
}

// New creates a Tailer. Option defaults are applied here.
func New(opts Options) *Tailer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("source")
	}
	return &Tailer{opts: opts, logger: logger}
}

// Run reads the input and invokes emit for every complete line (without its
// trailing newline). Without follow it returns nil at EOF; a trailing partial
// line is emitted then. In follow mode it keeps polling for growth, handling
// truncation and rotation, until ctx is cancelled.
func (t *Tailer) Run(ctx context.Context, emit func(line string) error) error {
	if t.opts.Path == "" {
		return ErrNoInput
	}
	if t.opts.Path == StdinPath {
		return t.runReader(ctx, os.Stdin, emit)
	}
	return t.runFile(ctx, emit)
}

// readResult carries one blocking read off the reader goroutine.
type readResult struct {
	line string
	err  error
}

// runReader consumes a plain reader (stdin or a pipe) until EOF or cancel.
// The blocking reads run in their own goroutine so cancellation takes effect
// even while no input is arriving. That goroutine stays parked in ReadString
// until the reader unblocks; for stdin that is the process's remaining
// lifetime after cancel, which is short.
func (t *Tailer) runReader(ctx context.Context, r io.Reader, emit func(string) error) error {
	br := bufio.NewReader(r)
	results := make(chan readResult)
	go func() {
		defer close(results)
		for {
			line, err := br.ReadString('\n')
			select {
			case results <- readResult{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			if len(res.line) > 0 {
				if e := emit(strings.TrimSuffix(res.line, "\n")); e != nil {
					return e
				}
			}
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return nil
				}
				return res.err
			}
		}
	}
}
