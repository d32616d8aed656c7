// Package source reads flow's input as whole lines.
//
// The input is a file path or "-" for stdin. In follow mode the tailer polls
// the file for growth, restarts from the top on truncation, and reopens when
// the path points at a new file (rotation), backing off exponentially while
// the path is missing. A trailing fragment without its newline is held back
// until the newline arrives, except at final EOF without follow, where it is
// emitted as the last line.
//
// Stdin reads block between lines, so cancellation is observed at line
// granularity there; file follow observes ctx on every poll tick.
package source
