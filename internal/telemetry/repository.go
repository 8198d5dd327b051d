package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/logger"
	"codeberg.org/halvard/sysmond/internal/sysinfo"

	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	cfg           Config
	mu            sync.Mutex
	buffer        []sysinfo.Reading
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	logger.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Telemetry repository initialized")

	repo := &repository{
		db:            db,
		cfg:           cfg,
		buffer:        make([]sysinfo.Reading, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Record(reading sysinfo.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, reading)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Close() error {
	close(r.shutdownChan)

	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	// Wait for the flusher to finish its final flush
	<-r.flushDoneChan

	r.mu.Lock()
	r.flush()
	r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	logger.Info().Msg("Telemetry repository closed gracefully")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
			return
		}
	}
}

func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertReadingSQL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for i := range r.buffer {
		reading := &r.buffer[i]
		values := []interface{}{
			reading.Timestamp.Unix(),
			reading.CPUPercent(),
			reading.RAMPercent(),
			reading.UploadBytesPerSec(),
			reading.DownloadBytesPerSec(),
			maxCPUTemperature(reading),
			primaryFanRPM(reading),
			int64(reading.Battery.Capacity),
		}

		if _, err := stmt.Exec(values...); err != nil {
			logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(r.buffer)).Msg("Flushed readings to database")
	r.buffer = r.buffer[:0]

	return nil
}

// maxCPUTemperature picks the hottest reported temperature. One number is
// enough for trend analysis; full sensor detail stays in the in-memory
// history.
func maxCPUTemperature(reading *sysinfo.Reading) float64 {
	max := 0.0
	for _, t := range reading.Sensors.Temperatures {
		if t.Current > max {
			max = t.Current
		}
	}
	return max
}

func primaryFanRPM(reading *sysinfo.Reading) int64 {
	for _, f := range reading.Sensors.Fans {
		if f.RPM > 0 {
			return int64(f.RPM)
		}
	}
	return 0
}
