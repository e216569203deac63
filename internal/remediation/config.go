package remediation

import (
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
)

const (
	// DefaultWait separates power-off from power-on so the device fully
	// discharges before restarting.
	DefaultWait = 30 * time.Second

	// DefaultRetryAttempts bounds power-on attempts per invocation.
	DefaultRetryAttempts = 3

	// OutageThreshold is how long connectivity must be continuously down
	// before an automatic power cycle fires.
	OutageThreshold = 5 * time.Minute
)

// Reasons recorded in the remediation event log.
const (
	ReasonManual = "manually triggered"
	ReasonOutage = "Internet down for 5+ minutes"
)

type Config struct {
	Wait          time.Duration
	RetryAttempts int
}

func DefaultConfig() Config {
	return Config{
		Wait:          DefaultWait,
		RetryAttempts: DefaultRetryAttempts,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.RetryAttempts < 1 {
		return errFactory.WithMessage(ErrInvalidConfig, "retry attempts must be at least 1")
	}
	if c.Wait < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "wait duration must not be negative")
	}

	return nil
}
