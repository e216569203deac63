package store

import "codeberg.org/mutker/netpulse/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/netpulse/internet_status.db"
)

type Config struct {
	DBPath string
}

func DefaultConfig() Config {
	return Config{
		DBPath: defaultDBPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
