package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate the config file and data directory.
const (
	EnvConfigPath = "GITINGEST_CONFIG_PATH"
	EnvHome       = "GITINGEST_HOME"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - GITINGEST_CONFIG_PATH: config file location (default: ~/.config/gitingest.toml)
//   - GITINGEST_HOME: base directory for gitingest data (default: ~/.local/share/gitingest)
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

// getConfigPath returns the config file path, checking GITINGEST_CONFIG_PATH first,
// then falling back to the default ~/.config/gitingest.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gitingest.toml"), nil
}

// getBaseDir returns the base directory for gitingest data, checking GITINGEST_HOME first,
// then falling back to the XDG default ~/.local/share/gitingest.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "gitingest"), nil
}
