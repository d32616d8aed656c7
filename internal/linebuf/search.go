package linebuf

import "regexp"

// Match records where a pattern matched within a retained line. Offsets are
// byte index pairs into Text, one per occurrence.
type Match struct {
	Line    Line
	Offsets [][]int
}

// Search scans the retained lines oldest-first and returns those matching re,
// with per-line occurrence offsets for highlighting. limit 0 means no limit.
func (b *Buffer) Search(re *regexp.Regexp, limit int) []Match {
	lines := b.LastN(b.Len())
	var out []Match
	for _, ln := range lines {
		if limit > 0 && len(out) >= limit {
			break
		}
		offsets := re.FindAllStringIndex(ln.Text, -1)
		if len(offsets) == 0 {
			continue
		}
		out = append(out, Match{Line: ln, Offsets: offsets})
	}
	return out
}

// MatchOffsets returns the occurrence offsets of re in text, or nil when it
// does not match.
func MatchOffsets(re *regexp.Regexp, text string) [][]int {
	if re == nil {
		return nil
	}
	return re.FindAllStringIndex(text, -1)
}
