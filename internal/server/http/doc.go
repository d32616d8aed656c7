// Package httpserver serves the live tail buffer over HTTP: a JSON endpoint
// for the trailing lines, buffer stats, and an SSE stream for follow mode.
package httpserver
