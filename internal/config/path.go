package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// Candidate config file names, in lookup order.
var fileNames = []string{".flow.yml", ".flow.yaml", ".flow.json"}

// Resolve locates the config file to load. An explicit path wins and must
// exist. Otherwise the current directory is searched, then the user home.
// An empty result means no config file; defaults apply.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		if p := firstExisting(cwd); p != "" {
			return p, nil
		}
	}

	home, err := homedir.Dir()
	if err != nil || home == "" {
		return "", nil
	}
	return firstExisting(home), nil
}

func firstExisting(dir string) string {
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// DefaultDataDir returns the default archive directory based on the host OS.
// It prefers standard locations when available and falls back to a dotdir
// in the user's home directory.
func DefaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "flow")
	}

	// macOS: ~/Library/Application Support/Flow
	if isDir(filepath.Join(home, "Library")) {
		return filepath.Join(home, "Library", "Application Support", "Flow")
	}

	// Windows: %USERPROFILE%/AppData/Local/Flow
	if isDir(filepath.Join(home, "AppData")) {
		return filepath.Join(home, "AppData", "Local", "Flow")
	}

	// Fallback: ~/.flow
	return filepath.Join(home, ".flow")
}

// ResolveDataDir picks the effective data directory: an explicit flag wins,
// then the configured directory, then the OS default.
func ResolveDataDir(explicit string, cfg Config) string {
	if explicit != "" {
		return explicit
	}
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return DefaultDataDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
