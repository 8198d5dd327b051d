package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/logger"
)

const (
	SchemaVersion = 1

	backupDir = "/var/lib/sysmond/backups"

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS readings (
	       timestamp        INTEGER PRIMARY KEY,
	       cpu_percent      REAL NOT NULL,
	       ram_percent      REAL NOT NULL,
	       upload_bps       REAL NOT NULL,
	       download_bps     REAL NOT NULL,
	       max_cpu_temp     REAL NOT NULL,
	       fan_rpm          INTEGER NOT NULL,
	       battery_capacity INTEGER NOT NULL
	   );`

	insertReadingSQL = `
    INSERT OR REPLACE INTO readings (
        timestamp,
        cpu_percent, ram_percent,
        upload_bps, download_bps,
        max_cpu_temp, fan_rpm, battery_capacity
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// InitSchema creates a fresh schema at the current version.
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Info().
		Int("version", SchemaVersion).
		Msg("Telemetry schema initialized")

	return nil
}

// GetSchemaVersion returns the stored schema version, or 0 for a fresh
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}

// ValidateAndUpdateSchema checks the schema version and recreates it when it
// does not match, backing up the existing database first.
func ValidateAndUpdateSchema(db *sql.DB) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	if version == SchemaVersion {
		logger.Debug().
			Int("version", version).
			Msg("Schema version is current")
		return nil
	}

	if version != 0 {
		backupPath, err := backupDatabase(db, version)
		if err != nil {
			return errFactory.WithData(ErrSchemaMigrationFailed, struct {
				Phase string
				Error string
				Path  string
			}{
				Phase: "backup",
				Error: err.Error(),
				Path:  backupPath,
			})
		}
	}

	if err := dropTables(db); err != nil {
		return err
	}
	return InitSchema(db)
}

func backupDatabase(db *sql.DB, version int) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  backupDir,
			Error: err.Error(),
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("telemetry_v%d_%s.db", version, timestamp))

	// VACUUM INTO requires no active transaction
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	logger.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Database backup created")

	return backupPath, nil
}

func dropTables(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback drop tables")
			}
		}
	}()

	tables := []string{"readings", "schema_versions"}
	for _, table := range tables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errFactory.WithData(ErrSchemaMigrationFailed, struct {
				Phase string
				Table string
				Error string
			}{
				Phase: "drop_table",
				Table: table,
				Error: err.Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "commit_changes",
			Error: err.Error(),
		})
	}
	committed = true

	return nil
}
