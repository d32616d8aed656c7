package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FLOW_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLOW_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lines = n
		}
	}
	if v := os.Getenv("FLOW_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Max = n
		}
	}
	if v := os.Getenv("FLOW_FOLLOW"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Follow = b
		}
	}
	if v := os.Getenv("FLOW_HIGHLIGHT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Highlight = b
		}
	}
	if v := os.Getenv("FLOW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FLOW_ARCHIVE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ArchiveMax = n
		}
	}
	if v := os.Getenv("FLOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FLOW_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
