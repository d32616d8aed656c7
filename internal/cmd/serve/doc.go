// Package serve runs the tail pipeline behind an HTTP server: trailing lines
// and stats as JSON, live follow as SSE.
package serve
