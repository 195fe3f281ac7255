package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the config directory.
const AppName = "vitals"

// ConfigDir returns the XDG-compliant config directory for vitals
// Typically ~/.config/vitals/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}
