// Package paths resolves where the configuration file and the SQLite
// database live, following platform conventions with flag, config and
// environment overrides.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDBName is the database file name inside the data directory.
const DefaultDBName = "pagegrid.db"

// Environment variable names for location overrides.
const (
	EnvConfigDir = "PAGEGRID_CONFIG_DIR"
	EnvDB        = "PAGEGRID_DB"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/pagegrid (fallback ~/.config/pagegrid)
// macOS:   ~/Library/Application Support/pagegrid
// Windows: %APPDATA%/pagegrid
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pagegrid"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "pagegrid"), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "pagegrid"), nil
	}
}

// DefaultDBPath returns the platform-specific default database path.
//
// Linux:   $XDG_DATA_HOME/pagegrid/pagegrid.db (fallback ~/.local/share/pagegrid/pagegrid.db)
// macOS:   ~/Library/Application Support/pagegrid/pagegrid.db
// Windows: %APPDATA%/pagegrid/pagegrid.db
func DefaultDBPath() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "pagegrid", DefaultDBName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "pagegrid", DefaultDBName), nil
	default:
		// macOS and Windows: same base as the config dir.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "pagegrid", DefaultDBName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > PAGEGRID_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDBPath returns the database path following the precedence
// chain: flag > config file value > PAGEGRID_DB env > DefaultDBPath().
func ResolveDBPath(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDB); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDBPath()
}
