package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/rzbill/flow/internal/archive"
	"github.com/rzbill/flow/internal/config"
	"github.com/rzbill/flow/internal/filter"
	"github.com/rzbill/flow/internal/linebuf"
	"github.com/rzbill/flow/internal/render"
	"github.com/rzbill/flow/pkg/id"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// Options carries the fully resolved settings for one replay run.
type Options struct {
	// Session selects a session by hex ID. Empty means the most recent.
	Session string
	// Lines limits output to the trailing n entries. 0 means all.
	Lines int
	// Reverse prints newest-first.
	Reverse bool
	// List prints the stored sessions instead of replaying one.
	List bool
	// Stats prints session statistics instead of its lines.
	Stats bool
	// Match selects a named filter from Config.Filters.
	Match string
	// Expr is an inline filter expression.
	Expr string
	// Highlight enables ANSI highlighting of rule matches.
	Highlight bool
	// DataDir overrides the configured data directory.
	DataDir string

	Config config.Config
	Out    io.Writer
	Logger logpkg.Logger
}

// Run replays an archived session to opts.Out.
func Run(ctx context.Context, opts Options) error {
	arch, err := archive.OpenDir(config.ResolveDataDir(opts.DataDir, opts.Config))
	if err != nil {
		return err
	}
	defer func() { _ = arch.Close() }()

	if opts.List {
		return listSessions(arch, opts.Out)
	}

	sess, err := openSession(arch, opts.Session)
	if err != nil {
		return err
	}
	if opts.Stats {
		return printStats(sess, opts.Out)
	}
	return replaySession(sess, opts)
}

func openSession(arch *archive.Archive, session string) (*archive.Session, error) {
	if session != "" {
		sid, err := id.Parse(session)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", session, err)
		}
		return arch.OpenSession(sid)
	}
	info, err := arch.Latest()
	if err != nil {
		return nil, err
	}
	sid, err := id.Parse(info.ID)
	if err != nil {
		return nil, err
	}
	return arch.OpenSession(sid)
}

func listSessions(arch *archive.Archive, out io.Writer) error {
	infos, err := arch.Sessions()
	if err != nil {
		return err
	}
	for _, info := range infos {
		started := time.UnixMilli(info.StartedMs)
		fmt.Fprintf(out, "%s  %s  %s lines  %s\n",
			info.ID, humanize.Time(started), humanize.Comma(int64(info.LastSeq)), info.Input)
	}
	return nil
}

func printStats(sess *archive.Session, out io.Writer) error {
	count, err := sess.Count()
	if err != nil {
		return err
	}
	usage, err := sess.DiskUsage()
	if err != nil {
		return err
	}
	meta := sess.Meta()
	fmt.Fprintf(out, "session: %s\n", meta.ID)
	fmt.Fprintf(out, "input:   %s\n", meta.Input)
	fmt.Fprintf(out, "started: %s\n", humanize.Time(time.UnixMilli(meta.StartedMs)))
	fmt.Fprintf(out, "lines:   %s\n", humanize.Comma(int64(count)))
	fmt.Fprintf(out, "size:    %s\n", humanize.Bytes(usage))
	return nil
}

func replaySession(sess *archive.Session, opts Options) error {
	chain, err := filter.New(opts.Match, opts.Expr, opts.Config)
	if err != nil {
		return err
	}

	// Trailing-n semantics: scan newest-first, filter, stop at the limit,
	// then restore order unless reverse output was asked for.
	readOpts := archive.ReadOptions{Reverse: true}
	if opts.Lines > 0 && !chain.Active() {
		readOpts.Limit = opts.Lines
	}
	entries, err := sess.Read(readOpts)
	if err != nil {
		return err
	}
	if chain.Active() {
		kept := entries[:0]
		for _, e := range entries {
			if chain.Match(e.Text, e.Seq, e.TimeMs) {
				kept = append(kept, e)
			}
			if opts.Lines > 0 && len(kept) == opts.Lines {
				break
			}
		}
		entries = kept
	}
	if !opts.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	rend := render.New(opts.Out, opts.Highlight, chain.Rule())
	for _, e := range entries {
		if err := rend.Line(linebuf.Line{Seq: e.Seq, Text: e.Text, TimeMs: e.TimeMs}); err != nil {
			return err
		}
	}
	return nil
}
