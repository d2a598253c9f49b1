package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DirName  = ".planner"
	FileName = "config.yaml"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: "file"},
		Sync: SyncConfig{
			Blob: BlobConfig{Container: "tasks", Blob: "tasks.csv"},
		},
		Features: FeaturesConfig{ExtendedFields: true},
		Web:      WebConfig{Port: 8000},
	}
}

// Load merges the global config and then the project config found under
// dir. Missing files are skipped; unreadable ones are errors.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(filepath.Join(home, DirName, FileName), cfg); err != nil {
			return nil, err
		}
	}

	if err := loadFile(ProjectConfigPath(dir), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}
	return nil
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// StoragePath resolves Storage.Path against the project directory.
func (c *Config) StoragePath(dir string) string {
	p := c.Storage.Path
	if p == "" {
		p = "tasks.csv"
		if c.Storage.Backend == "sqlite" {
			p = "planner.db"
		}
		return filepath.Join(dir, DirName, p)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

const header = `# Planner configuration
#
# storage.backend: "file" (CSV file) or "sqlite"
# sync remotes are enabled once their url, account or uri is set.
`

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	return Write(path, DefaultConfig())
}

func Write(path string, cfg *Config) error {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
