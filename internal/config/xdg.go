package config

import (
	"os"
	"path/filepath"
)

const appName = "tuipesync"

// xdgHome returns $env, or the conventional fallback under the home
// directory, or "." when no home is known.
func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// XDGConfigHome returns the XDG config home.
func XDGConfigHome() string { return xdgHome("XDG_CONFIG_HOME", ".config") }

// XDGDataHome returns the XDG data home.
func XDGDataHome() string { return xdgHome("XDG_DATA_HOME", ".local", "share") }

// XDGStateHome returns the XDG state home, where logs belong.
func XDGStateHome() string { return xdgHome("XDG_STATE_HOME", ".local", "state") }

// DefaultWordListPath is where a word list for lang is picked up without --wordlist.
func DefaultWordListPath(lang string) string {
	return filepath.Join(XDGConfigHome(), appName, "wordlists", lang+".txt")
}

// DefaultDBPath is the local score database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultLogPath is the rotated log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appName, appName+".log")
}

// DefaultConfigPath is the TOML config file.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
