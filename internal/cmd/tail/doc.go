// Package tail implements the default command: read an input through the
// bounded line buffer, print the trailing lines, and optionally follow.
package tail
