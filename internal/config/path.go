// Package config loads the settings of the rule engine and its CLI.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDir         = "spice"
	configFileName = "rules"
	databaseFile   = "rules.db"
)

// ExpandPath expands a leading ~ and $VAR references in a path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// ConfigDir is where the rules.yaml config file lives.
func ConfigDir() string {
	return ExpandPath(filepath.Join("~", ".config", appDir))
}

// DefaultDatabasePath is the rule database used when none is configured.
func DefaultDatabasePath() string {
	return ExpandPath(filepath.Join("~", ".local", "share", appDir, databaseFile))
}
