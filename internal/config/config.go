package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/EchoTools/nutexTools/pkg/export"
)

// Defaults applied by Resolve.
const (
	DefaultFormat   = export.PNG
	DefaultListen   = "localhost:7089"
	DefaultDatabase = "nutex.db"
	cacheDirName    = ".nutexcache"
)

// Config holds all configurable paths and export settings.
type Config struct {
	// Paths
	Input     string `json:"input"`
	OutputDir string `json:"output_dir"`
	CacheDir  string `json:"cache_dir"`
	Database  string `json:"database"`

	// Export settings
	Format  string `json:"format"`
	MaxSize int    `json:"max_size"`
	Workers int    `json:"workers"`

	// Server
	Listen string `json:"listen"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Input     string
	OutputDir string
	CacheDir  string
	Database  string
	Format    string
	MaxSize   int
	Workers   int
	Listen    string
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve applies flag overrides and fills in empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Input != "" {
		c.Input = flags.Input
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.CacheDir != "" {
		c.CacheDir = flags.CacheDir
	}
	if flags.Database != "" {
		c.Database = flags.Database
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.MaxSize > 0 {
		c.MaxSize = flags.MaxSize
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Listen != "" {
		c.Listen = flags.Listen
	}

	if c.Format == "" {
		c.Format = string(DefaultFormat)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaxSize < 0 {
		c.MaxSize = 0
	}

	// Cache and database live beside the output when it is known
	if c.OutputDir != "" {
		if c.CacheDir == "" {
			c.CacheDir = filepath.Join(c.OutputDir, cacheDirName)
		}
		if c.Database == "" {
			c.Database = filepath.Join(c.OutputDir, DefaultDatabase)
		}
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
}

// Kind returns the parsed export format.
func (c *Config) Kind() (export.Kind, error) {
	return export.ParseKind(c.Format)
}
