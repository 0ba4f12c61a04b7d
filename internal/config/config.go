// Package config loads the application configuration. Defaults are
// overlaid by an optional YAML file, then by CARBONLEDGER_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Engine    EngineConfig    `yaml:"engine"`
	Assistant AssistantConfig `yaml:"assistant"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Batch     BatchConfig     `yaml:"batch"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format"`

	// File duplicates output to the given path when set.
	File string `yaml:"file"`
}

// EngineConfig tunes the calculation chain.
type EngineConfig struct {
	// SimilarityFloor is the minimum factor match similarity.
	SimilarityFloor float64 `yaml:"similarity_floor"`

	// PreferredSource breaks factor ties toward the named source.
	PreferredSource string `yaml:"preferred_source"`

	// DatasetPath overrides the embedded factor dataset when set.
	DatasetPath string `yaml:"dataset_path"`

	// DemoMode answers every request from the demo table.
	DemoMode bool `yaml:"demo_mode"`
}

// AssistantConfig configures the external assistant backend.
type AssistantConfig struct {
	// BaseURL enables the assistant when set.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates assistant calls.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each assistant call.
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig configures calculation persistence.
type DatabaseConfig struct {
	// DSN is the PostgreSQL connection string. Empty disables persistence.
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
}

// BatchConfig tunes batch processing.
type BatchConfig struct {
	// ChunkSize is the number of items per chunk.
	ChunkSize int `yaml:"chunk_size"`

	// Pause separates consecutive chunks.
	Pause time.Duration `yaml:"pause"`

	// Concurrency limits simultaneous calculations within a chunk.
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: EngineConfig{
			SimilarityFloor: 0.6,
		},
		Assistant: AssistantConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Batch: BatchConfig{
			ChunkSize:   20,
			Pause:       200 * time.Millisecond,
			Concurrency: 4,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays CARBONLEDGER_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Logging.Level, "CARBONLEDGER_LOG_LEVEL")
	setString(&c.Logging.Format, "CARBONLEDGER_LOG_FORMAT")
	setString(&c.Logging.File, "CARBONLEDGER_LOG_FILE")
	setFloat(&c.Engine.SimilarityFloor, "CARBONLEDGER_SIMILARITY_FLOOR")
	setString(&c.Engine.PreferredSource, "CARBONLEDGER_PREFERRED_SOURCE")
	setString(&c.Engine.DatasetPath, "CARBONLEDGER_DATASET_PATH")
	setBool(&c.Engine.DemoMode, "CARBONLEDGER_DEMO_MODE")
	setString(&c.Assistant.BaseURL, "CARBONLEDGER_ASSISTANT_URL")
	setString(&c.Assistant.APIKey, "CARBONLEDGER_ASSISTANT_API_KEY")
	setString(&c.Database.DSN, "CARBONLEDGER_DATABASE_DSN")
	setString(&c.Server.Addr, "CARBONLEDGER_SERVER_ADDR")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
