// Package paths resolves the default locations of hlcache files.
package paths

import (
	"os"
	"path/filepath"
)

const (
	// ProjectConfigPath is the per-project config, relative to the working
	// directory.
	ProjectConfigPath = ".hlcache/config.yaml"

	appName = "hlcache"
)

// UserConfigDir returns ~/.config/hlcache, or "" when the home directory is
// unknown.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// UserConfigPath returns ~/.config/hlcache/config.yaml, or "".
func UserConfigPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultTracePath returns ~/.config/hlcache/traces/traces.jsonl, or "".
func DefaultTracePath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultLogPath is used when debug logging is on and no path is configured.
func DefaultLogPath() string {
	return "debug.log"
}

// ResolveConfig picks the config file to load. An explicit path wins, then
// the project config if it exists, then the user config if it exists. It
// returns "" when none is found.
func ResolveConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if fileExists(ProjectConfigPath) {
		return ProjectConfigPath
	}
	if user := UserConfigPath(); user != "" && fileExists(user) {
		return user
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
