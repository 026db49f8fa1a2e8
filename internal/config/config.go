// Package config loads the streaming core's YAML configuration: where
// checkpoints and the write-ahead log live, how often the execution
// loop polls its sources, and which ambient services are enabled.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration struct, loaded from a single
// YAML file.
type Config struct {
	CheckpointDir   string `yaml:"checkpointDir"`
	BatchIntervalMs int    `yaml:"batchIntervalMs"`
	MinBatchGapMs   int    `yaml:"minBatchGapMs"`

	Receiver struct {
		WriteAheadLog struct {
			Enable           bool  `yaml:"enable"`
			RolloverBytes    int64 `yaml:"rolloverBytes"`
			RolloverMinutes  int   `yaml:"rolloverMinutes"`
			RetentionMinutes int   `yaml:"retentionMinutes"`
		} `yaml:"writeAheadLog"`
	} `yaml:"receiver"`

	UI struct {
		MaxBatches int `yaml:"maxBatches"`
	} `yaml:"ui"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	WAL struct {
		BufferSize      int `yaml:"bufferSize"`
		FlushIntervalMs int `yaml:"flushIntervalMs"`
	} `yaml:"wal"`
}

// BatchInterval returns BatchIntervalMs as a time.Duration.
func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.BatchIntervalMs) * time.Millisecond
}

// MinBatchGap returns MinBatchGapMs as a time.Duration.
func (c *Config) MinBatchGap() time.Duration {
	return time.Duration(c.MinBatchGapMs) * time.Millisecond
}

// WALRolloverInterval returns the configured WAL rollover period.
func (c *Config) WALRolloverInterval() time.Duration {
	return time.Duration(c.Receiver.WriteAheadLog.RolloverMinutes) * time.Minute
}

// WALRetention returns the configured WAL retention window.
func (c *Config) WALRetention() time.Duration {
	return time.Duration(c.Receiver.WriteAheadLog.RetentionMinutes) * time.Minute
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in zero-valued fields with sane operational
// defaults, so a minimal config file (or an empty one) still produces
// a runnable configuration.
func applyDefaults(cfg *Config) {
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = "./checkpoint"
	}
	if cfg.BatchIntervalMs == 0 {
		cfg.BatchIntervalMs = 1000
	}
	if cfg.MinBatchGapMs == 0 {
		cfg.MinBatchGapMs = cfg.BatchIntervalMs
	}
	if cfg.Receiver.WriteAheadLog.RolloverMinutes == 0 {
		cfg.Receiver.WriteAheadLog.RolloverMinutes = 60
	}
	if cfg.Receiver.WriteAheadLog.RolloverBytes == 0 {
		cfg.Receiver.WriteAheadLog.RolloverBytes = 64 * 1024 * 1024
	}
	if cfg.Receiver.WriteAheadLog.RetentionMinutes == 0 {
		cfg.Receiver.WriteAheadLog.RetentionMinutes = 60
	}
	if cfg.UI.MaxBatches == 0 {
		cfg.UI.MaxBatches = 100
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.WAL.BufferSize == 0 {
		cfg.WAL.BufferSize = 100
	}
	if cfg.WAL.FlushIntervalMs == 0 {
		cfg.WAL.FlushIntervalMs = 200
	}
}
