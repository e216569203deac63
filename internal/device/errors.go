package device

import "codeberg.org/mutker/netpulse/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("device_invalid_config")

	// Transport Errors
	ErrFault   = errors.ErrDeviceFault
	ErrTimeout = errors.ErrDeviceTimeout
	ErrSession = errors.ErrorCode("device_session_failed")
)
