package tail

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rzbill/flow/internal/archive"
	"github.com/rzbill/flow/internal/config"
	"github.com/rzbill/flow/internal/filter"
	"github.com/rzbill/flow/internal/linebuf"
	"github.com/rzbill/flow/internal/render"
	"github.com/rzbill/flow/internal/source"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// Options carries the fully resolved settings for one tail run. The caller
// is responsible for merging config file, environment, and flags.
type Options struct {
	// Input is the file to tail, or "-" for stdin.
	Input string
	// Lines is how many trailing lines to print.
	Lines int
	// Max bounds the in-memory buffer.
	Max int
	// Follow keeps streaming appended lines after the initial output.
	// Ignored for stdin, which always reads through EOF.
	Follow bool
	// Highlight enables ANSI highlighting of rule matches.
	Highlight bool
	// Match selects a named filter from Config.Filters.
	Match string
	// Expr is an inline filter expression.
	Expr string
	// Archive persists the session to the data directory.
	Archive bool
	// DataDir overrides the configured data directory.
	DataDir string

	// Config supplies named filters and the default data directory.
	Config config.Config

	Out    io.Writer
	Logger logpkg.Logger
}

func (o *Options) normalize() error {
	if o.Lines < 0 {
		return fmt.Errorf("lines must be >= 0, got %d", o.Lines)
	}
	if o.Max < 0 {
		return fmt.Errorf("max must be > 0, got %d", o.Max)
	}
	if o.Max == 0 {
		o.Max = config.DefaultMax
	}
	if o.Lines > o.Max {
		o.Lines = o.Max
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger().WithComponent("tail")
	}
	return nil
}

// Run tails opts.Input: it reads the input through a bounded buffer, prints
// the trailing opts.Lines lines, and in follow mode keeps streaming appended
// lines until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	if opts.Input == "" {
		return source.ErrNoInput
	}

	chain, err := filter.New(opts.Match, opts.Expr, opts.Config)
	if err != nil {
		return err
	}

	buf := linebuf.New(opts.Max)
	rend := render.New(opts.Out, opts.Highlight, chain.Rule())

	follow := opts.Follow && opts.Input != source.StdinPath

	var sess *archive.Session
	var aw *archive.Writer
	if opts.Archive {
		arch, aErr := archive.OpenDir(config.ResolveDataDir(opts.DataDir, opts.Config))
		if aErr != nil {
			return aErr
		}
		defer func() { _ = arch.Close() }()
		sess, aErr = arch.StartSession(opts.Input)
		if aErr != nil {
			return aErr
		}
		opts.Logger.Info("archiving session",
			logpkg.Str("session", sess.ID().String()),
			logpkg.Str("input", opts.Input))
		aw = archive.NewWriter(sess, archive.DefaultWriterBatchSize)
	}

	var stopFlush context.CancelFunc
	flushDone := make(chan struct{})
	if aw != nil && follow {
		var flushCtx context.Context
		flushCtx, stopFlush = context.WithCancel(ctx)
		defer stopFlush()
		go func() {
			defer close(flushDone)
			if fErr := aw.RunFlusher(flushCtx, 0); fErr != nil {
				opts.Logger.Warn("archive flush failed", logpkg.Err(fErr))
			}
		}()
	} else {
		close(flushDone)
	}

	streaming := false
	emit := func(text string) error {
		tsMs := linebuf.NowMs()
		if !chain.Match(text, buf.LastSeq()+1, tsMs) {
			return nil
		}
		ln := buf.AppendAt(text, tsMs)
		if aw != nil {
			if aErr := aw.Add(ctx, ln); aErr != nil {
				return fmt.Errorf("archive append: %w", aErr)
			}
		}
		if streaming {
			return rend.Line(ln)
		}
		return nil
	}

	t := source.New(source.Options{
		Path:   opts.Input,
		Follow: follow,
		Logger: opts.Logger,
		InitialEOF: func() {
			_ = rend.Lines(buf.LastN(opts.Lines))
			streaming = true
		},
	})

	runErr := t.Run(ctx, emit)

	if stopFlush != nil {
		stopFlush()
	}
	<-flushDone
	if aw != nil {
		if fErr := aw.Flush(context.Background()); fErr != nil {
			opts.Logger.Warn("archive flush failed", logpkg.Err(fErr))
		}
	}
	if sess != nil && opts.Config.ArchiveMax > 0 {
		if n, tErr := sess.TrimToMaxCount(context.Background(), opts.Config.ArchiveMax, trimBatchLimit); tErr != nil {
			opts.Logger.Warn("archive trim failed", logpkg.Err(tErr))
		} else if n > 0 {
			opts.Logger.Debug("archive trimmed", logpkg.Int("removed", n))
		}
	}

	if runErr != nil {
		if follow && errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	}
	if !streaming {
		return rend.Lines(buf.LastN(opts.Lines))
	}
	return nil
}

// trimBatchLimit bounds deletions per batch when trimming archived sessions.
const trimBatchLimit = 1024
