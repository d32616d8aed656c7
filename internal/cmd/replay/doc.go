// Package replay reads archived capture sessions back out: listing sessions,
// printing their lines, and reporting stats.
package replay
