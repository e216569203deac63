package device

import (
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	Address  string
	Username string
	Password string
	Name     string
	Timeout  time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Address == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "device address is required")
	}
	if c.Username == "" || c.Password == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "device credentials are required")
	}

	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}

	return c.Timeout
}
