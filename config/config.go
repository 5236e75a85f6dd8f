// Copyright 2026 Origin Steward Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the steward daemon and API configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PathsConfig holds the on-disk layout. Empty fields default to
// subdirectories of DataDir.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`
	Inbox    string `yaml:"inbox"`
	Archive  string `yaml:"archive"`
	ErrorDir string `yaml:"error_dir"`
	Blobs    string `yaml:"blobs"`
	Database string `yaml:"database"`
}

// EmbeddingConfig holds embedding endpoint settings.
type EmbeddingConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// IngestionConfig holds pipeline tuning knobs.
type IngestionConfig struct {
	PoolSize          int `yaml:"pool_size"` // 0 = half the CPUs
	ExtractTimeoutSec int `yaml:"extract_timeout_sec"`
}

// HTTPConfig holds HTTP API settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file. A missing file is not an
// error; the returned config then carries only defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns the default config file location,
// $HOME/.steward/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".steward", "config.yaml")
	}
	return filepath.Join(home, ".steward", "config.yaml")
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Paths.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Paths.DataDir = filepath.Join(home, ".steward")
	}
	if c.Paths.Inbox == "" {
		c.Paths.Inbox = filepath.Join(c.Paths.DataDir, "inbox")
	}
	if c.Paths.Archive == "" {
		c.Paths.Archive = filepath.Join(c.Paths.DataDir, "archive")
	}
	if c.Paths.ErrorDir == "" {
		c.Paths.ErrorDir = filepath.Join(c.Paths.DataDir, "errors")
	}
	if c.Paths.Blobs == "" {
		c.Paths.Blobs = filepath.Join(c.Paths.DataDir, "blobs")
	}
	if c.Paths.Database == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, "db")
	}
	if c.Embedding.Host == "" {
		c.Embedding.Host = "http://localhost:11434/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Ingestion.ExtractTimeoutSec <= 0 {
		c.Ingestion.ExtractTimeoutSec = 30
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8787
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Ingestion.PoolSize < 0 {
		return fmt.Errorf("ingestion.pool_size must not be negative, got %d", c.Ingestion.PoolSize)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// EnsureDirs creates every configured directory that does not yet exist.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.Inbox,
		c.Paths.Archive,
		c.Paths.ErrorDir,
		c.Paths.Blobs,
		c.Paths.Database,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
