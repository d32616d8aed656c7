package serve

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/flow/internal/archive"
	"github.com/rzbill/flow/internal/config"
	"github.com/rzbill/flow/internal/filter"
	"github.com/rzbill/flow/internal/linebuf"
	httpserver "github.com/rzbill/flow/internal/server/http"
	"github.com/rzbill/flow/internal/source"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// Options carries the fully resolved settings for serve mode.
type Options struct {
	// Input is the file to tail, or "-" for stdin.
	Input string
	// Addr is the HTTP listen address.
	Addr string
	// Lines is the default count for /v1/lines.
	Lines int
	// Max bounds the in-memory buffer.
	Max int
	// Match selects a named filter from Config.Filters.
	Match string
	// Expr is an inline filter expression.
	Expr string
	// Archive persists the session to the data directory.
	Archive bool
	// DataDir overrides the configured data directory.
	DataDir string

	// OnListen, when set, is invoked with the bound address once the HTTP
	// listener is accepting.
	OnListen func(addr string)

	Config config.Config
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
	if o.Lines == 0 {
		o.Lines = config.DefaultLines
	}
	if o.Lines > o.Max {
		o.Lines = o.Max
	}
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger().WithComponent("serve")
	}
	return nil
}

// Run tails opts.Input into the buffer and serves it over HTTP until ctx is
// cancelled. File inputs are always followed; stdin reads through EOF and
// the server keeps answering from what was buffered.
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
		return nil
	}

	t := source.New(source.Options{
		Path:   opts.Input,
		Follow: opts.Input != source.StdinPath,
		Logger: opts.Logger,
	})
	srv := httpserver.New(buf, opts.Input, opts.Lines, opts.Logger)
	if opts.OnListen != nil {
		srv.NotifyReady(opts.OnListen)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := t.Run(gctx, emit)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, opts.Addr)
	})
	if aw != nil {
		g.Go(func() error {
			return aw.RunFlusher(gctx, 0)
		})
	}
	err = g.Wait()

	if aw != nil {
		if fErr := aw.Flush(context.Background()); fErr != nil {
			opts.Logger.Warn("archive flush failed", logpkg.Err(fErr))
		}
	}
	if sess != nil && opts.Config.ArchiveMax > 0 {
		if n, tErr := sess.TrimToMaxCount(context.Background(), opts.Config.ArchiveMax, 1024); tErr != nil {
			opts.Logger.Warn("archive trim failed", logpkg.Err(tErr))
		} else if n > 0 {
			opts.Logger.Debug("archive trimmed", logpkg.Int("removed", n))
		}
	}
	return err
}
