package archive

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// TrimToMaxCount deletes the oldest entries until at most max remain.
// Deletes are committed in batches of up to batchLimit keys. Returns the
// number of deleted entries.
func (s *Session) TrimToMaxCount(ctx context.Context, max int, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if max < 0 {
		return 0, nil
	}

	total, err := s.Count()
	if err != nil {
		return 0, err
	}
	excess := total - max
	if excess <= 0 {
		return 0, nil
	}

	low := KeyEntry(s.id, 0)
	hi := KeyEntry(s.id, ^uint64(0))
	iter, err := s.a.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok && deleted < excess; {
		b := s.a.db.NewBatch()
		n := 0
		for ok && n < batchLimit && deleted < excess {
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := s.a.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
		}
		b.Close()
	}
	return deleted, nil
}
