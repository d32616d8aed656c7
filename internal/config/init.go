package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultTemplate is written by `flow --init`. Comments double as docs.
const defaultTemplate = `# flow configuration
#
# Number of trailing lines printed before following.
lines: 10

# Maximum lines retained in memory while tailing.
max: 3000

# Keep streaming appended lines after the initial output.
follow: false

# ANSI highlighting of filter matches on terminal output.
highlight: true

# Named filters, selectable with --match=<name>. Rules are regular
# expressions evaluated against each line.
#filters:
#  - name: errors
#    rule: "ERROR|FATAL"
#  - name: warnings
#    rule: "WARN"

# Session archive location. Defaults to the OS application data directory.
#dataDir: ~/.flow

# Trim archived sessions to this many lines when a capture finishes.
# 0 keeps everything.
#archiveMax: 100000

#log:
#  level: info
#  format: text
`

// WriteDefault writes a commented default config file at path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		return fmt.Errorf("init: empty path")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("init: %s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("init: stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o644)
}
