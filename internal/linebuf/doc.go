// Package linebuf implements flow's bounded in-memory line buffer.
//
// # Overview
//
// The buffer retains at most max lines (the CLI's --max). Appends assign
// monotonically increasing sequence numbers and evict the oldest line once
// the bound is reached; eviction never renumbers survivors, so a sequence
// taken from one read remains a valid resume position for the next.
//
// API surface (internal)
//
//	b := linebuf.New(3000)
//	ln := b.Append("GET /healthz 200")
//
//	// Trailing output
//	last := b.LastN(10)
//
//	// Follow streaming: resume from a sequence
//	next := ln.Seq + 1
//	batch := b.ReadFrom(next, 128)
//
//	// Blocking wait/notify
//	woke := b.WaitForAppend(50 * time.Millisecond)
//	_ = woke
//
//	// Search with per-line match offsets for highlighting
//	matches := b.Search(regexp.MustCompile("ERROR"), 0)
//	_ = matches
package linebuf
