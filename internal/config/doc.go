// Package config provides loading, resolution, and environment overlay for
// flow configuration. It exposes a Default() baseline, a Resolve() lookup
// that honors the CLI contract (explicit flag, then current directory, then
// user home), and an init-file generator for `flow --init`.
//
// Example:
//
//	path, err := config.Resolve(flagValue)
//	if err != nil { /* handle */ }
//	cfg, err := config.Load(path)
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
package config
