package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Read-path errors
	ErrStoreUnavailable ErrorCode = "store_unavailable"
	ErrCacheUnavailable ErrorCode = "cache_unavailable"
	ErrCacheMiss        ErrorCode = "cache_miss"

	// Remediation errors
	ErrDeviceFault      ErrorCode = "device_fault"
	ErrDeviceTimeout    ErrorCode = "device_timeout"
	ErrRetriesExhausted ErrorCode = "retries_exhausted"
	ErrRemediationBusy  ErrorCode = "remediation_busy"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrUnavailable:      "Service unavailable",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInvalidConfig:    "Invalid configuration",
	ErrMissingConfig:    "Missing configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read configuration",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrStoreUnavailable: "Sample store unavailable",
	ErrCacheUnavailable: "Cache backend unavailable",
	ErrCacheMiss:        "Cache entry not found",
	ErrDeviceFault:      "Device transport fault",
	ErrDeviceTimeout:    "Device call timed out",
	ErrRetriesExhausted: "All retry attempts failed",
	ErrRemediationBusy:  "A remediation cycle is already in flight",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
	ErrInvalidOperation: "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
