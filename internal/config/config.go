// Package config holds the JSON-backed engine configuration: device
// defaults, the drive variant used to build LOCATE CDBs, and logging
// options.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	Tape    TapeConfig    `json:"tape"`
	Logging LoggingConfig `json:"logging"`
}

// DriveConfig holds configuration for a single tape drive.
type DriveConfig struct {
	DevicePath  string `json:"device_path"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
}

// TapeConfig holds tape-related configuration.
type TapeConfig struct {
	DefaultDevice string        `json:"default_device"`
	Drives        []DriveConfig `json:"drives,omitempty"`
	BlockSize     int           `json:"block_size"`
	// DriveVariant selects the LOCATE/SPACE CDB dialect a Positioner builds:
	// "standard", "slr3", "slr1", or "m2488".
	DriveVariant string `json:"drive_variant"`
	// ExtraPartitionCount is the number of partitions beyond partition 0.
	// LTFS cartridges carry exactly 1 (index + data); 0 selects the
	// single-partition fallback locator strategy.
	ExtraPartitionCount int `json:"extra_partition_count"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // "json" or "text"
	OutputPath string `json:"output_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tape: TapeConfig{
			DefaultDevice: "/dev/nst0",
			Drives: []DriveConfig{
				{DevicePath: "/dev/nst0", DisplayName: "Primary LTO Drive", Enabled: true},
			},
			BlockSize:           524288,
			DriveVariant:        "standard",
			ExtraPartitionCount: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			OutputPath: "",
		},
	}
}

// Load loads configuration from a JSON file, returning the defaults if the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
