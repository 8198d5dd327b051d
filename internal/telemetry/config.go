package telemetry

import "codeberg.org/halvard/sysmond/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/sysmond/telemetry.db"

	defaultBatchSize    = 10
	defaultBatchTimeout = 30 // seconds
)

type Config struct {
	DBPath       string
	Enabled      bool
	BatchSize    int
	BatchTimeout int
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "batch size and timeout must not be negative")
	}

	return nil
}
