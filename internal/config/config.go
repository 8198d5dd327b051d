package config

import (
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/telemetry"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval        = 2
	defaultHistoryDuration = 3600
	defaultProcessInterval = 5
	defaultProcessLimit    = 50
	defaultHelperPath      = "/usr/libexec/sysmond-helper"
	defaultRGBAddress      = "127.0.0.1:6742"
	defaultTelemetryDB     = "/var/lib/sysmond/telemetry.db"
)

// Alerts holds the usage thresholds the console view warns on.
type Alerts struct {
	CPUWarn float64 `mapstructure:"cpu_warn"`
	CPUCrit float64 `mapstructure:"cpu_crit"`
	RAMWarn float64 `mapstructure:"ram_warn"`
	RAMCrit float64 `mapstructure:"ram_crit"`
}

// Profile is a named bundle of control-surface writes applied in one call.
type Profile struct {
	Governor   string `mapstructure:"governor"`
	MaxFreqKHz int    `mapstructure:"max_freq_khz"`
	PWM        int    `mapstructure:"pwm"`
	PWMPath    string `mapstructure:"pwm_path"`
}

type Config struct {
	Interval        int                `mapstructure:"interval"`
	HistoryDuration int                `mapstructure:"history_duration"`
	ProcessInterval int                `mapstructure:"process_interval"`
	ProcessLimit    int                `mapstructure:"process_limit"`
	UsePkexec       bool               `mapstructure:"use_pkexec"`
	HelperPath      string             `mapstructure:"helper_path"`
	LogLevel        string             `mapstructure:"log_level"`
	Debug           bool               `mapstructure:"debug"`
	Verbose         bool               `mapstructure:"verbose"`
	Telemetry       bool               `mapstructure:"telemetry"`
	TelemetryDB     string             `mapstructure:"database"`
	BatchSize       int                `mapstructure:"batch_size"`
	BatchTimeout    int                `mapstructure:"batch_timeout"`
	RGB             bool               `mapstructure:"rgb"`
	RGBAddress      string             `mapstructure:"rgb_address"`
	Alerts          Alerts             `mapstructure:"alerts"`
	Profiles        map[string]Profile `mapstructure:"profiles"`
}

// Load reads configuration from /etc/sysmond.toml (or $SYSMOND_CONFIG),
// applies command-line overrides from args and validates the result.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := flag.NewFlagSet("sysmond", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Int("interval", defaultInterval, "Seconds between metric readings")
	fs.Int("history-duration", defaultHistoryDuration, "Seconds of reading history to retain")
	fs.Int("process-interval", defaultProcessInterval, "Seconds between process table refreshes (0 disables)")
	fs.Int("process-limit", defaultProcessLimit, "Maximum process table entries")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.String("database", defaultTelemetryDB, "Path to the telemetry database")
	fs.Bool("telemetry", false, "Persist readings to the telemetry database")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	if path := os.Getenv("SYSMOND_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("sysmond")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Flags set on the command line win over the config file.
	fs.Visit(func(f *flag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("history_duration", defaultHistoryDuration)
	v.SetDefault("process_interval", defaultProcessInterval)
	v.SetDefault("process_limit", defaultProcessLimit)
	v.SetDefault("use_pkexec", false)
	v.SetDefault("helper_path", defaultHelperPath)
	v.SetDefault("log_level", DefaultLogLevel)
	telemetryDefaults := telemetry.DefaultConfig()
	v.SetDefault("telemetry", false)
	v.SetDefault("database", defaultTelemetryDB)
	v.SetDefault("batch_size", telemetryDefaults.BatchSize)
	v.SetDefault("batch_timeout", telemetryDefaults.BatchTimeout)
	v.SetDefault("rgb", false)
	v.SetDefault("rgb_address", defaultRGBAddress)
	v.SetDefault("alerts.cpu_warn", 85.0)
	v.SetDefault("alerts.cpu_crit", 95.0)
	v.SetDefault("alerts.ram_warn", 85.0)
	v.SetDefault("alerts.ram_crit", 95.0)
}

// Validate checks the loaded values against the documented constraints.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.HistoryDuration < c.Interval {
		return errFactory.WithData(errors.ErrInvalidHistory, c.HistoryDuration)
	}
	if c.ProcessInterval < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.ProcessInterval)
	}
	if c.ProcessLimit < 0 {
		return errFactory.WithData(errors.ErrInvalidArgument, c.ProcessLimit)
	}
	if c.Alerts.CPUWarn >= c.Alerts.CPUCrit || c.Alerts.RAMWarn >= c.Alerts.RAMCrit {
		return errFactory.WithData(errors.ErrInvalidAlerts, c.Alerts)
	}
	if !validLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "telemetry enabled without a database path")
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "batch size and timeout must not be negative")
	}

	return nil
}

// HistoryCapacity derives the history buffer size from the retention window.
func (c *Config) HistoryCapacity() int {
	capacity := c.HistoryDuration / c.Interval
	if capacity < 1 {
		capacity = 1
	}

	return capacity
}

// TelemetryConfig assembles the settings the telemetry collector consumes.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		DBPath:       c.TelemetryDB,
		Enabled:      c.Telemetry,
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
	}
}

func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) ProcessIntervalDuration() time.Duration {
	return time.Duration(c.ProcessInterval) * time.Second
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
