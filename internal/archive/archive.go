package archive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/flow/internal/linebuf"
	pebblestore "github.com/rzbill/flow/internal/storage/pebble"
	"github.com/rzbill/flow/pkg/id"
)

// ErrSessionNotFound is returned when the requested session does not exist.
var ErrSessionNotFound = errors.New("archive: session not found")

// Meta describes a capture session.
type Meta struct {
	ID        string `json:"id"`
	Input     string `json:"input"`
	StartedMs int64  `json:"startedMs"`
}

// Info is Meta plus the last assigned sequence.
type Info struct {
	Meta
	LastSeq uint64
}

// Archive stores capture sessions in Pebble.
type Archive struct {
	db     *pebblestore.DB
	gen    *id.Generator
	ownsDB bool
}

// Open wraps a store.
func Open(db *pebblestore.DB) *Archive {
	return &Archive{db: db, gen: id.NewGenerator()}
}

// OpenDir opens (or creates) the archive store under dir.
func OpenDir(dir string) (*Archive, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: filepath.Join(dir, "archive"),
	})
	if err != nil {
		return nil, err
	}
	return &Archive{db: db, gen: id.NewGenerator(), ownsDB: true}, nil
}

// Close releases the underlying store when the Archive opened it itself.
func (a *Archive) Close() error {
	if a.ownsDB {
		return a.db.Close()
	}
	return nil
}

// StartSession creates a new session for the given input path.
func (a *Archive) StartSession(input string) (*Session, error) {
	sid := a.gen.Next()
	meta := Meta{ID: sid.String(), Input: input, StartedMs: time.Now().UnixMilli()}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := a.db.Set(KeySessionMeta(sid), b); err != nil {
		return nil, err
	}
	return &Session{a: a, id: sid, meta: meta}, nil
}

// OpenSession opens an existing session and loads its last sequence.
func (a *Archive) OpenSession(sid id.ID) (*Session, error) {
	mb, err := a.db.Get(KeySessionMeta(sid))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(mb, &meta); err != nil {
		return nil, err
	}
	s := &Session{a: a, id: sid, meta: meta}
	if sb, err := a.db.Get(KeySessionSeq(sid)); err == nil && len(sb) >= 8 {
		s.lastSeq = binary.BigEndian.Uint64(sb[:8])
	}
	return s, nil
}

// Sessions lists all sessions in chronological order.
func (a *Archive) Sessions() ([]Info, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: sessPrefix, UpperBound: sessRangeEnd()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Info
	for ok := iter.First(); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) != len(sessPrefix)+16+len(metaSuffix) || string(key[len(key)-2:]) != string(metaSuffix) {
			continue
		}
		sid, ok2 := sessionIDFromKey(key)
		if !ok2 {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(iter.Value(), &meta); err != nil {
			continue
		}
		info := Info{Meta: meta}
		if sb, err := a.db.Get(KeySessionSeq(sid)); err == nil && len(sb) >= 8 {
			info.LastSeq = binary.BigEndian.Uint64(sb[:8])
		}
		out = append(out, info)
	}
	return out, nil
}

// Latest returns the most recent session.
func (a *Archive) Latest() (Info, error) {
	infos, err := a.Sessions()
	if err != nil {
		return Info{}, err
	}
	if len(infos) == 0 {
		return Info{}, ErrSessionNotFound
	}
	return infos[len(infos)-1], nil
}

// Session provides append and read operations for one capture session.
type Session struct {
	a    *Archive
	id   id.ID
	meta Meta

	mu      sync.Mutex
	lastSeq uint64
}

// ID returns the session identifier.
func (s *Session) ID() id.ID { return s.id }

// Meta returns the session metadata.
func (s *Session) Meta() Meta { return s.meta }

// LastSeq returns the last assigned sequence.
func (s *Session) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Append stores the provided lines as a single atomic batch. The buffer's
// sequences are not reused; the archive numbers entries itself so trims and
// replays stay independent of in-memory eviction.
func (s *Session) Append(ctx context.Context, lines []linebuf.Line) error {
	if len(lines) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.a.db.NewBatch()
	defer b.Close()

	for _, ln := range lines {
		s.lastSeq++
		if err := b.Set(KeyEntry(s.id, s.lastSeq), EncodeEntry(ln.TimeMs, ln.Text), nil); err != nil {
			return err
		}
	}
	var seqb [8]byte
	binary.BigEndian.PutUint64(seqb[:], s.lastSeq)
	if err := b.Set(KeySessionSeq(s.id), seqb[:], nil); err != nil {
		return err
	}
	return s.a.db.CommitBatch(ctx, b)
}

// Entry is a single archived line.
type Entry struct {
	Seq    uint64
	TimeMs int64
	Text   string
}

// ReadOptions bounds a Read scan.
type ReadOptions struct {
	// Start is the first sequence (inclusive). 0 means the first entry, or
	// the last when Reverse is set.
	Start uint64
	// Limit caps returned entries; 0 means no limit.
	Limit int
	// Reverse scans newest-first.
	Reverse bool
}

// Read returns entries per opts. Corrupt entries are skipped.
func (s *Session) Read(opts ReadOptions) ([]Entry, error) {
	low := KeyEntry(s.id, 0)
	hi := KeyEntry(s.id, ^uint64(0))
	iter, err := s.a.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var items []Entry
	take := func() {
		ts, text, ok := DecodeEntry(iter.Value())
		if !ok {
			return
		}
		items = append(items, Entry{Seq: entrySeqFromKey(iter.Key()), TimeMs: ts, Text: text})
	}

	if opts.Reverse {
		var ok bool
		if opts.Start == 0 {
			ok = iter.Last()
		} else {
			ok = iter.SeekLT(KeyEntry(s.id, opts.Start+1))
		}
		for ; ok; ok = iter.Prev() {
			if opts.Limit > 0 && len(items) >= opts.Limit {
				break
			}
			take()
		}
		return items, nil
	}

	var ok bool
	if opts.Start == 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(KeyEntry(s.id, opts.Start))
	}
	for ; ok; ok = iter.Next() {
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
		take()
	}
	return items, nil
}

// Count returns the number of stored entries.
func (s *Session) Count() (int, error) {
	low := KeyEntry(s.id, 0)
	hi := KeyEntry(s.id, ^uint64(0))
	iter, err := s.a.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, nil
}

// DiskUsage approximates the on-disk bytes held by this session's entries.
func (s *Session) DiskUsage() (uint64, error) {
	low := KeyEntry(s.id, 0)
	hi := KeyEntry(s.id, ^uint64(0))
	return s.a.db.EstimateDiskUsage(low, append(hi, 0x00))
}
