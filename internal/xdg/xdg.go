// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg provides XDG Base Directory paths for the hooks tool.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "hooks"

// configFileName is the default config file inside ConfigDir.
const configFileName = "config.yaml"

// ConfigDir returns the XDG config directory for hooks.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := homeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}


// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.In("xdg").With("path", path).Hint("failed to create directory").Wrap(err)
	}
	return nil
}

func homeDir() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", oops.In("xdg").Errorf("neither XDG base variable nor HOME is set")
	}
	return home, nil
}
