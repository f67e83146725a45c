package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ftrack.
type Config struct {
	// Database is the path of the metadata store.
	Database string `toml:"database"`

	// LogDir is the directory receiving per-run log files and history
	// CSVs.
	LogDir string `toml:"log_dir"`

	// Filesystems maps each tracked filesystem root to the filesystem id
	// captured when the root was registered. A mount change under a root
	// is detected by comparing the live id against this value.
	Filesystems map[string]int64 `toml:"filesystems"`

	History    HistoryConfig    `toml:"history"`
	Encryption EncryptionConfig `toml:"encryption"`
	Scan       ScanConfig       `toml:"scan"`
}

// HistoryConfig controls how history logs are written.
type HistoryConfig struct {
	// Compress gzips history CSVs.
	Compress bool `toml:"compress"`

	// Encrypt age-encrypts history CSVs with the configured public key.
	Encrypt bool `toml:"encrypt"`
}

// EncryptionConfig holds paths to the age key pair protecting history logs.
type EncryptionConfig struct {
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ScanConfig holds settings for the register-phase walk.
type ScanConfig struct {
	// Ignore lists patterns for files excluded from tracking.
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config with default paths under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		Database:    filepath.Join(baseDir, "files.db"),
		LogDir:      filepath.Join(baseDir, "log"),
		Filesystems: map[string]int64{},
		History: HistoryConfig{
			Compress: true,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ftrack.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ftrack.key"),
		},
	}
}

// AddFilesystem registers a tracked root with its filesystem id.
// Returns false if the root is already registered; the stored id is then
// left untouched.
func (c *Config) AddFilesystem(root string, fsID int64) bool {
	if c.Filesystems == nil {
		c.Filesystems = map[string]int64{}
	}
	if _, ok := c.Filesystems[root]; ok {
		return false
	}
	c.Filesystems[root] = fsID
	return true
}

// RemoveFilesystem deregisters a tracked root. Returns false if the root
// was not registered.
func (c *Config) RemoveFilesystem(root string) bool {
	if _, ok := c.Filesystems[root]; !ok {
		return false
	}
	delete(c.Filesystems, root)
	return true
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteToFile writes a Config to the specified file path, creating parent
// directories as needed.
func WriteToFile(path string, cfg *Config) error {
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

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	// Refuse to clobber an existing config.
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := WriteToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
