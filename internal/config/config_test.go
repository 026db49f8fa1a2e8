package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
checkpointDir: /tmp/checkpoints
batchIntervalMs: 2000
minBatchGapMs: 500
receiver:
  writeAheadLog:
    enable: true
    rolloverBytes: 1048576
    rolloverMinutes: 30
    retentionMinutes: 120
ui:
  maxBatches: 50
metrics:
  enabled: true
  port: 9100
wal:
  bufferSize: 200
  flushIntervalMs: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/checkpoints", cfg.CheckpointDir)
	assert.Equal(t, 2000*time.Millisecond, cfg.BatchInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.MinBatchGap())
	assert.True(t, cfg.Receiver.WriteAheadLog.Enable)
	assert.Equal(t, int64(1048576), cfg.Receiver.WriteAheadLog.RolloverBytes)
	assert.Equal(t, 30*time.Minute, cfg.WALRolloverInterval())
	assert.Equal(t, 120*time.Minute, cfg.WALRetention())
	assert.Equal(t, 50, cfg.UI.MaxBatches)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, 200, cfg.WAL.BufferSize)
	assert.Equal(t, 50, cfg.WAL.FlushIntervalMs)
}

func TestLoadAppliesDefaultsToEmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./checkpoint", cfg.CheckpointDir)
	assert.Equal(t, 1000, cfg.BatchIntervalMs)
	assert.Equal(t, cfg.BatchIntervalMs, cfg.MinBatchGapMs)
	assert.Equal(t, 60, cfg.Receiver.WriteAheadLog.RolloverMinutes)
	assert.Equal(t, int64(64*1024*1024), cfg.Receiver.WriteAheadLog.RolloverBytes)
	assert.Equal(t, 100, cfg.UI.MaxBatches)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, 100, cfg.WAL.BufferSize)
	assert.Equal(t, 200, cfg.WAL.FlushIntervalMs)
}

func TestLoadPartialConfigKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
batchIntervalMs: 5000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.BatchIntervalMs)
	// minBatchGapMs was left unset, so it defaults to batchIntervalMs.
	assert.Equal(t, 5000, cfg.MinBatchGapMs)
	assert.Equal(t, "./checkpoint", cfg.CheckpointDir)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "checkpointDir: [unterminated")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
