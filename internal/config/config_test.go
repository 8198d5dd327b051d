package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/halvard/sysmond/internal/config"
	"codeberg.org/halvard/sysmond/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "sysmond.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 5
history_duration = 600
process_interval = 10
process_limit = 25
use_pkexec = true
log_level = "debug"
telemetry = true
database = "/path/to/telemetry.db"
rgb = true
rgb_address = "127.0.0.1:6742"

[alerts]
cpu_warn = 70.0
cpu_crit = 90.0

[profiles.quiet]
governor = "powersave"
max_freq_khz = 2400000
`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval, "Expected Interval 5")
	assert.Equal(t, 600, cfg.HistoryDuration, "Expected HistoryDuration 600")
	assert.Equal(t, 10, cfg.ProcessInterval, "Expected ProcessInterval 10")
	assert.Equal(t, 25, cfg.ProcessLimit, "Expected ProcessLimit 25")
	assert.True(t, cfg.UsePkexec, "Expected UsePkexec true")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Telemetry, "Expected Telemetry true")
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB, "Expected TelemetryDB /path/to/telemetry.db")
	assert.True(t, cfg.RGB, "Expected RGB true")
	assert.Equal(t, 70.0, cfg.Alerts.CPUWarn, "Expected CPUWarn 70")
	assert.Equal(t, 90.0, cfg.Alerts.CPUCrit, "Expected CPUCrit 90")

	require.Contains(t, cfg.Profiles, "quiet")
	assert.Equal(t, "powersave", cfg.Profiles["quiet"].Governor)
	assert.Equal(t, 2400000, cfg.Profiles["quiet"].MaxFreqKHz)
}

func TestLoadDefaults(t *testing.T) {
	// Point at an empty config file so a host /etc/sysmond.toml cannot leak in
	configPath := writeConfigFile(t, "")
	t.Setenv("SYSMOND_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 2, cfg.Interval, "Expected default Interval 2")
	assert.Equal(t, 3600, cfg.HistoryDuration, "Expected default HistoryDuration 3600")
	assert.Equal(t, 5, cfg.ProcessInterval, "Expected default ProcessInterval 5")
	assert.Equal(t, 50, cfg.ProcessLimit, "Expected default ProcessLimit 50")
	assert.False(t, cfg.UsePkexec, "Expected default UsePkexec false")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.False(t, cfg.Telemetry, "Expected default Telemetry false")
	assert.Equal(t, 10, cfg.BatchSize, "Expected default BatchSize 10")
	assert.Equal(t, 30, cfg.BatchTimeout, "Expected default BatchTimeout 30")
	assert.Equal(t, 85.0, cfg.Alerts.CPUWarn, "Expected default CPUWarn 85")
	assert.Equal(t, 95.0, cfg.Alerts.CPUCrit, "Expected default CPUCrit 95")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfigFile(t, "This is not a valid TOML file")
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfigFile(t, `log_level = "invalid"`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestInvalidInterval(t *testing.T) {
	configPath := writeConfigFile(t, `interval = 0`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidInterval, errors.CodeOf(err))
}

func TestHistoryShorterThanInterval(t *testing.T) {
	configPath := writeConfigFile(t, "interval = 10\nhistory_duration = 5\n")
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidHistory, errors.CodeOf(err))
}

func TestInvalidAlertThresholds(t *testing.T) {
	configPath := writeConfigFile(t, `
[alerts]
cpu_warn = 95.0
cpu_crit = 85.0
`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidAlerts, errors.CodeOf(err))
}

func TestEqualAlertThresholdsRejected(t *testing.T) {
	configPath := writeConfigFile(t, `
[alerts]
ram_warn = 90.0
ram_crit = 90.0
`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidAlerts, errors.CodeOf(err))
}

func TestTelemetryBatchSettings(t *testing.T) {
	configPath := writeConfigFile(t, `
telemetry = true
database = "/path/to/telemetry.db"
batch_size = 50
batch_timeout = 120
`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	tcfg := cfg.TelemetryConfig()
	assert.True(t, tcfg.Enabled, "Expected telemetry enabled")
	assert.Equal(t, "/path/to/telemetry.db", tcfg.DBPath)
	assert.Equal(t, 50, tcfg.BatchSize, "Expected BatchSize 50")
	assert.Equal(t, 120, tcfg.BatchTimeout, "Expected BatchTimeout 120")
}

func TestNegativeBatchSizeRejected(t *testing.T) {
	configPath := writeConfigFile(t, `batch_size = -1`)
	t.Setenv("SYSMOND_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidConfig, errors.CodeOf(err))
}

func TestFlagOverridesConfigFile(t *testing.T) {
	configPath := writeConfigFile(t, "interval = 5\nlog_level = \"error\"\n")
	t.Setenv("SYSMOND_CONFIG", configPath)

	cfg, err := config.Load([]string{"--interval", "7", "--log-level", "debug"})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Interval, "Expected flag to override config file")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestHistoryCapacity(t *testing.T) {
	cfg := &config.Config{Interval: 2, HistoryDuration: 3600}
	assert.Equal(t, 1800, cfg.HistoryCapacity())

	cfg = &config.Config{Interval: 5, HistoryDuration: 5}
	assert.Equal(t, 1, cfg.HistoryCapacity())
}
