package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// runFile reads the file at opts.Path. In follow mode it polls for growth and
// reopens on truncation or rotation; reopen attempts back off exponentially
// while the file is missing.
func (t *Tailer) runFile(ctx context.Context, emit func(string) error) error {
	f, err := os.Open(t.opts.Path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	reopen := &backoff.Backoff{
		Min:    t.opts.PollInterval,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	br := bufio.NewReader(f)
	var partial strings.Builder
	var offset int64
	initialEOF := t.opts.InitialEOF

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := br.ReadString('\n')
		if line != "" {
			offset += int64(len(line))
			if strings.HasSuffix(line, "\n") {
				partial.WriteString(strings.TrimSuffix(line, "\n"))
				if e := emit(partial.String()); e != nil {
					return e
				}
				partial.Reset()
			} else {
				// hold the fragment until its newline arrives
				partial.WriteString(line)
			}
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}

		if !t.opts.Follow {
			if partial.Len() > 0 {
				if e := emit(partial.String()); e != nil {
					return e
				}
			}
			return nil
		}

		if initialEOF != nil {
			initialEOF()
			initialEOF = nil
		}

		// At EOF in follow mode: wait for growth, truncation, or rotation.
		nf, reset, werr := t.waitForChange(ctx, f, offset, reopen)
		if werr != nil {
			return werr
		}
		if nf != nil {
			_ = f.Close()
			f = nf
			br = bufio.NewReader(f)
			offset = 0
			partial.Reset()
			reopen.Reset()
		} else if reset {
			if _, serr := f.Seek(0, io.SeekStart); serr != nil {
				return serr
			}
			br = bufio.NewReader(f)
			offset = 0
			partial.Reset()
		}
	}
}

// waitForChange blocks until the file grows, shrinks, or is replaced. It
// returns a new handle when the path now refers to a different file, or
// reset=true when the current file was truncated.
func (t *Tailer) waitForChange(ctx context.Context, f *os.File, offset int64, reopen *backoff.Backoff) (*os.File, bool, error) {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}

		cur, err := f.Stat()
		if err != nil {
			return nil, false, err
		}
		fresh, err := os.Stat(t.opts.Path)
		if err != nil {
			// rotated away; keep trying to reopen with backoff
			t.logger.Debug("input missing, retrying", logpkg.Str("path", t.opts.Path))
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(reopen.Duration()):
			}
			if nf, oerr := os.Open(t.opts.Path); oerr == nil {
				t.logger.Info("input rotated, reopened", logpkg.Str("path", t.opts.Path))
				return nf, false, nil
			}
			continue
		}

		if !os.SameFile(cur, fresh) {
			nf, oerr := os.Open(t.opts.Path)
			if oerr != nil {
				continue
			}
			t.logger.Info("input rotated, reopened", logpkg.Str("path", t.opts.Path))
			return nf, false, nil
		}
		if fresh.Size() < offset {
			t.logger.Info("input truncated, restarting from top", logpkg.Str("path", t.opts.Path))
			return nil, true, nil
		}
		if fresh.Size() > offset {
			return nil, false, nil
		}
	}
}
