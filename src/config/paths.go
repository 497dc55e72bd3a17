package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "claudexport"

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// export history is state, not configuration
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, appName, "history.db"),
	}
}

// GetDefaultOutputPath returns the default export directory
func GetDefaultOutputPath() string {
	if xdg.UserDirs.Download != "" {
		return filepath.Join(xdg.UserDirs.Download, appName)
	}
	return filepath.Join(xdg.DataHome, appName, "exports")
}

// GetUserConfigPath returns the per-user configuration file path
func GetUserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}
