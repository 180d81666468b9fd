package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Environment variables that override file settings.
const (
	EnvOutputFormat = "GITINGEST_OUTPUT_FORMAT"
	EnvOutputFile   = "GITINGEST_OUTPUT_FILE"
	EnvMaxFileSize  = "GITINGEST_MAX_FILE_SIZE"
	EnvWorkers      = "GITINGEST_WORKERS"
)

// Defaults for a new configuration.
const (
	DefaultWorkers       = 4
	DefaultMaxFileSizeKB = 200
)

// defaultIgnore lists the patterns a new configuration starts with.
var defaultIgnore = []string{
	"node_modules/",
	"__pycache__/",
	"*.pyc",
	".venv/",
	"venv/",
	".idea/",
	".vscode/",
	".DS_Store",
}

// Config represents the main configuration for gitingest.
type Config struct {
	LogDir           string                 `toml:"log_dir"`
	Workers          int                    `toml:"workers"`
	Output           OutputConfig           `toml:"output"`
	Filters          FiltersConfig          `toml:"filters"`
	DatabaseAnalysis DatabaseAnalysisConfig `toml:"database_analysis"`
}

// OutputConfig selects the digest format and destination.
type OutputConfig struct {
	Format string `toml:"format"`         // "markdown" (default) or "json"
	File   string `toml:"file,omitempty"` // empty = stdout, or the default file name on a terminal
}

// FiltersConfig holds the file selection settings.
type FiltersConfig struct {
	MaxFileSize  int64    `toml:"max_file_size"` // in KB; 0 disables the limit
	Ignore       []string `toml:"ignore"`
	UseGitignore bool     `toml:"use_gitignore"`
}

// DatabaseAnalysisConfig gates the database analyzer.
type DatabaseAnalysisConfig struct {
	Enabled             bool `toml:"enabled"`
	ExtractSchema       bool `toml:"extract_schema"`
	IncludeSystemTables bool `toml:"include_system_tables"`
}

// NewConfig creates a Config with default settings that logs under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir:  filepath.Join(baseDir, "log"),
		Workers: DefaultWorkers,
		Output: OutputConfig{
			Format: FormatMarkdown,
		},
		Filters: FiltersConfig{
			MaxFileSize:  DefaultMaxFileSizeKB,
			Ignore:       append([]string(nil), defaultIgnore...),
			UseGitignore: true,
		},
		DatabaseAnalysis: DatabaseAnalysisConfig{
			Enabled: true,
		},
	}
}

// MaxFileSizeBytes converts the configured limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.Filters.MaxFileSize * 1024
}

// Validate checks the settings that cannot be repaired silently.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Filters.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative, got %d", c.Filters.MaxFileSize)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read with getenv.
// Unset or empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvOutputFormat); v != "" {
		c.Output.Format = v
	}
	if v := getenv(EnvOutputFile); v != "" {
		c.Output.File = v
	}
	if v := getenv(EnvMaxFileSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvMaxFileSize, v, err)
		}
		c.Filters.MaxFileSize = n
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	return nil
}

// LoadDotenv loads variables from a .env file into the process
// environment without replacing variables that are already set. A missing
// file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct {
	// Defaults is the configuration that file values are decoded onto.
	// When nil, NewConfig("") is used.
	Defaults *Config
}

// Read decodes a Config from the provided reader. Keys missing from the
// input keep their default values.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := m.base()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (m *Manager) base() *Config {
	if m.Defaults == nil {
		return NewConfig("")
	}
	cfg := *m.Defaults
	cfg.Filters.Ignore = append([]string(nil), m.Defaults.Filters.Ignore...)
	return &cfg
}

// ReadFromFile reads a Config from the specified file path, decoding it
// onto defaults.
func ReadFromFile(path string, defaults *Config) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Defaults: defaults}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path if it exists and returns defaults
// otherwise.
func Load(path string, defaults *Config) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		m := &Manager{Defaults: defaults}
		return m.base(), nil
	}
	return ReadFromFile(path, defaults)
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
