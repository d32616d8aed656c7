package linebuf

import (
	"sync"
	"time"
)

// Line is a single captured input line.
type Line struct {
	// Seq is assigned at append time and never reused.
	Seq uint64
	// Text is the line content without its trailing newline.
	Text string
	// TimeMs is the capture timestamp in Unix milliseconds.
	TimeMs int64
}

// Stats reports buffer counters.
type Stats struct {
	Len      int
	Max      int
	Appended uint64
	Evicted  uint64
	LastSeq  uint64
}

// Buffer retains at most max lines in memory. Appends assign monotonically
// increasing sequence numbers; when full, the oldest line is evicted. Waiters
// are woken through a notify channel swap on every append.
type Buffer struct {
	mu       sync.Mutex
	entries  []Line
	start    int
	count    int
	lastSeq  uint64
	appended uint64
	evicted  uint64
	notifyCh chan struct{}
}

// New creates a Buffer bounded to max lines. max below 1 is clamped to 1.
func New(max int) *Buffer {
	if max < 1 {
		max = 1
	}
	return &Buffer{
		entries:  make([]Line, max),
		notifyCh: make(chan struct{}),
	}
}

// NowMs returns current time in milliseconds; swappable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Append adds a line, evicting the oldest when the buffer is full, and wakes
// any waiters. It returns the stored Line with its assigned sequence.
func (b *Buffer) Append(text string) Line {
	return b.AppendAt(text, NowMs())
}

// AppendAt is Append with an explicit capture timestamp.
func (b *Buffer) AppendAt(text string, tsMs int64) Line {
	b.mu.Lock()
	b.lastSeq++
	ln := Line{Seq: b.lastSeq, Text: text, TimeMs: tsMs}
	if b.count == len(b.entries) {
		// evict oldest
		b.entries[b.start] = ln
		b.start = (b.start + 1) % len(b.entries)
		b.evicted++
	} else {
		b.entries[(b.start+b.count)%len(b.entries)] = ln
		b.count++
	}
	b.appended++
	close(b.notifyCh)
	b.notifyCh = make(chan struct{})
	b.mu.Unlock()
	return ln
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Max returns the retention bound.
func (b *Buffer) Max() int { return len(b.entries) }

// LastSeq returns the most recently assigned sequence (0 before any append).
func (b *Buffer) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeq
}

// Stats returns a snapshot of buffer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Len:      b.count,
		Max:      len(b.entries),
		Appended: b.appended,
		Evicted:  b.evicted,
		LastSeq:  b.lastSeq,
	}
}

// LastN returns up to n newest lines, oldest first.
func (b *Buffer) LastN(n int) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Line, 0, n)
	for i := b.count - n; i < b.count; i++ {
		out = append(out, b.entries[(b.start+i)%len(b.entries)])
	}
	return out
}

// ReadFrom returns up to limit retained lines with Seq >= from, oldest first.
// Lines already evicted are silently skipped; limit 0 means no limit.
func (b *Buffer) ReadFrom(from uint64, limit int) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	firstSeq := b.lastSeq - uint64(b.count) + 1
	if from < firstSeq {
		from = firstSeq
	}
	if from > b.lastSeq {
		return nil
	}
	n := int(b.lastSeq - from + 1)
	if limit > 0 && n > limit {
		n = limit
	}
	offset := int(from - firstSeq)
	out := make([]Line, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.entries[(b.start+offset+i)%len(b.entries)])
	}
	return out
}

// WaitForAppend blocks until either a new append occurs or timeout elapses.
// It returns true if woken by an append, false on timeout.
func (b *Buffer) WaitForAppend(timeout time.Duration) bool {
	b.mu.Lock()
	ch := b.notifyCh
	b.mu.Unlock()
	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
