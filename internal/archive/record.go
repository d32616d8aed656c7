package archive

import (
	"encoding/binary"
	"hash/crc32"
)

// Entry encoding: ts_ms(be8) | text | crc32c(ts|text)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeEntry serializes a captured line with its timestamp and checksum.
func EncodeEntry(tsMs int64, text string) []byte {
	out := make([]byte, 0, 8+len(text)+4)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(tsMs))
	out = append(out, ts[:]...)
	out = append(out, text...)

	crc := crc32.Update(0, castagnoli, out)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// DecodeEntry parses an encoded entry, verifying the checksum. Corrupt
// entries return ok=false and are skipped by readers.
func DecodeEntry(b []byte) (tsMs int64, text string, ok bool) {
	if len(b) < 8+4 {
		return 0, "", false
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return 0, "", false
	}
	tsMs = int64(binary.BigEndian.Uint64(body[:8]))
	return tsMs, string(body[8:]), true
}
