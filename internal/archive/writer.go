package archive

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/flow/internal/linebuf"
)

// DefaultWriterBatchSize bounds how many lines a Writer holds before it
// commits them as one batch.
const DefaultWriterBatchSize = 64

// Writer coalesces captured lines into batched session appends. Add buffers
// until the batch size is reached; Flush commits whatever is pending. In
// follow mode a periodic flusher keeps the buffered window small.
type Writer struct {
	sess      *Session
	batchSize int

	mu      sync.Mutex
	pending []linebuf.Line
}

// NewWriter wraps sess. batchSize below 1 uses DefaultWriterBatchSize.
func NewWriter(sess *Session, batchSize int) *Writer {
	if batchSize < 1 {
		batchSize = DefaultWriterBatchSize
	}
	return &Writer{sess: sess, batchSize: batchSize}
}

// Add buffers one line, committing the pending batch when it is full.
func (w *Writer) Add(ctx context.Context, ln linebuf.Line) error {
	w.mu.Lock()
	w.pending = append(w.pending, ln)
	if len(w.pending) < w.batchSize {
		w.mu.Unlock()
		return nil
	}
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()
	return w.commit(ctx, batch)
}

// Flush commits all pending lines as one batch.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return w.commit(ctx, batch)
}

// Pending reports how many lines are buffered but not yet committed.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// commit appends the batch, requeueing it ahead of newer lines on failure so
// retries preserve capture order.
func (w *Writer) commit(ctx context.Context, batch []linebuf.Line) error {
	if err := w.sess.Append(ctx, batch); err != nil {
		w.mu.Lock()
		w.pending = append(batch, w.pending...)
		w.mu.Unlock()
		return err
	}
	return nil
}

// RunFlusher flushes pending lines every interval until ctx is cancelled.
// The caller still owns the final Flush after the pipeline stops.
func (w *Writer) RunFlusher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				return err
			}
		}
	}
}
