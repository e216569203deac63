package remediation

import "codeberg.org/mutker/netpulse/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("remediation_invalid_config")

	// Sequencing Errors
	ErrBusy             = errors.ErrRemediationBusy
	ErrRetriesExhausted = errors.ErrRetriesExhausted
)
