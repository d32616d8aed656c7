// Package filter decides which tailed lines are kept.
//
// Two mechanisms compose. Named filters come from the config file and are
// regular expressions, selected on the command line with --match. Expression
// filters are CEL programs passed with --filter and evaluated against
// {text, seq, size, ts_ms, now_ms}, e.g.:
//
//	text.contains("ERROR") && size < 500
//	ts_ms > now_ms - 60000
//
// A line must pass both to reach the buffer.
package filter
