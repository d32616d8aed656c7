package archive

import (
	"encoding/binary"

	"github.com/rzbill/flow/pkg/id"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - sess/{id16}/m           (session metadata JSON)
// - sess/{id16}/s           (last assigned sequence, be8)
// - sess/{id16}/e/{seq_be8} (entries)
//
// Session IDs embed their start time big-endian, so scanning the sess/
// prefix yields sessions in chronological order.

var (
	sessPrefix = []byte("sess/")
	metaSuffix = []byte("/m")
	seqSuffix  = []byte("/s")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func keySessionBase(sid id.ID) []byte {
	k := make([]byte, 0, len(sessPrefix)+16+12)
	k = append(k, sessPrefix...)
	k = append(k, sid[:]...)
	return k
}

// KeySessionMeta builds the session metadata key.
func KeySessionMeta(sid id.ID) []byte {
	return append(keySessionBase(sid), metaSuffix...)
}

// KeySessionSeq builds the key holding the session's last sequence.
func KeySessionSeq(sid id.ID) []byte {
	return append(keySessionBase(sid), seqSuffix...)
}

// KeyEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyEntry(sid id.ID, seq uint64) []byte {
	k := append(keySessionBase(sid), entrySeg...)
	return appendBE8(k, seq)
}

// entrySeqFromKey extracts the sequence from an entry key.
func entrySeqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// sessionIDFromKey extracts the session ID from any session-scoped key.
// Returns false when the key is not under sess/ or too short.
func sessionIDFromKey(key []byte) (id.ID, bool) {
	var sid id.ID
	if len(key) < len(sessPrefix)+16 {
		return sid, false
	}
	copy(sid[:], key[len(sessPrefix):len(sessPrefix)+16])
	return sid, true
}

// sessRangeEnd is the exclusive upper bound covering all session keys.
func sessRangeEnd() []byte {
	end := append([]byte(nil), sessPrefix...)
	end[len(end)-1]++ // "sess0"
	return end
}
