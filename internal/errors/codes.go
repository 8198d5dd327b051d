package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotSupported    ErrorCode = "not_supported"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidHistory  ErrorCode = "invalid_history_duration"
	ErrInvalidAlerts   ErrorCode = "invalid_alert_thresholds"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Collection errors
	ErrCollectFailed ErrorCode = "collect_reading_failed"
	ErrRecordFailed  ErrorCode = "record_reading_failed"

	// Scheduler errors
	ErrTaskRunning  ErrorCode = "task_already_running"
	ErrStopTimeout  ErrorCode = "task_stop_timeout"
	ErrTaskNotFound ErrorCode = "task_not_found"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
	ErrPermission      ErrorCode = "permission_denied"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrNotSupported:    "Operation not supported on this system",
	ErrUnavailable:     "Service unavailable",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrReadConfig:      "Failed to read configuration",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidHistory:  "Invalid history duration",
	ErrInvalidAlerts:   "Invalid alert thresholds",
	ErrInvalidLogLevel: "Invalid log level",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrCollectFailed:   "Failed to collect system reading",
	ErrRecordFailed:    "Failed to record system reading",
	ErrTaskRunning:     "A task with this name is already running",
	ErrStopTimeout:     "Task did not stop within the timeout",
	ErrTaskNotFound:    "No task registered under this name",
	ErrOperationFailed: "Operation failed",
	ErrTimeout:         "Operation timed out",
	ErrPermission:      "Permission denied",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
