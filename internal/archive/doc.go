// Package archive persists capture sessions so tailed lines can be replayed
// after the process exits.
//
// # Overview
//
// Each run of flow with --archive opens a session. Sessions and their entries
// live in Pebble under keys that sort chronologically:
//   - sess/{id16}/m           (session metadata JSON)
//   - sess/{id16}/s           (last assigned sequence, be8)
//   - sess/{id16}/e/{seq_be8} (entries)
//
// Entries are stored as ts_ms(be8) | text | crc32c; corrupt entries are
// skipped on read rather than failing the whole scan.
//
// API surface (internal)
//
//	a := archive.Open(db)
//	s, _ := a.StartSession("/var/log/syslog")
//	_ = s.Append(ctx, lines)
//
//	// Replay newest-first
//	entries, _ := s.Read(archive.ReadOptions{Limit: 10, Reverse: true})
//	_ = entries
//
//	// Retention
//	_, _ = s.TrimToMaxCount(ctx, 100_000, 1024)
package archive
