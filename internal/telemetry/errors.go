package telemetry

import "codeberg.org/halvard/sysmond/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Schema errors
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("telemetry_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")

	// Storage errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Operation errors
	ErrInvalidReading   = errors.ErrorCode("telemetry_invalid_reading")
	ErrOperationTimeout = errors.ErrTimeout
)
