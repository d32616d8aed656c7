// Package log provides flow's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves the
// formatter/outputs pipeline, so output stays consistent across the codebase
// while slog-aware libraries keep working.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("tail"), log.Str("input", "/var/log/syslog"))
//	l.Info("following input", log.Int("lines", 10))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// text or JSON formatting and console or file outputs.
//
// # Interop
//
// To integrate with libraries expecting *log.Logger, use ToStdLogger or
// RedirectStdLog.
package log
