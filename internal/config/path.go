// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// DefaultDatabasePath is where the SQLite database lives unless configured.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/books/books.db")
}

// DefaultTokenFile is where `books sheets auth` stores the OAuth2 token.
func DefaultTokenFile() string {
	return ExpandPath("~/.config/books/sheets_token.json")
}
