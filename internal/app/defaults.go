package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - FTRACK_CONFIG_PATH: config file location (default: ~/.config/ftrack.toml)
//   - FTRACK_HOME: base directory for ftrack data (default: ~/.local/share/ftrack)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking FTRACK_CONFIG_PATH
// first, then falling back to the default ~/.config/ftrack.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("FTRACK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ftrack.toml"), nil
}

// getBaseDir returns the base directory for ftrack data, checking
// FTRACK_HOME first, then falling back to the XDG default
// ~/.local/share/ftrack.
func getBaseDir() (string, error) {
	if path := os.Getenv("FTRACK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ftrack"), nil
}
