package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultDBPath          = "/var/lib/netpulse/internet_status.db"
	defaultListenAddr      = ":8050"
	defaultRefreshMinutes  = 30
	defaultCacheBackend    = "memory"
	defaultCacheTTLSeconds = 300
	defaultWaitSeconds     = 30
	defaultRetryAttempts   = 3
	defaultProbeAddress    = "8.8.8.8:53"
	defaultProbeTimeout    = 2
	defaultProbeInterval   = 10
	defaultDeviceTimeout   = 10
)

type Config struct {
	LogLevel       string `mapstructure:"log_level"`
	Database       string `mapstructure:"database"`
	Listen         string `mapstructure:"listen"`
	RefreshMinutes int    `mapstructure:"refresh_minutes"`

	Cache       CacheConfig       `mapstructure:"cache"`
	Device      DeviceConfig      `mapstructure:"device"`
	Remediation RemediationConfig `mapstructure:"remediation"`
	Probe       ProbeConfig       `mapstructure:"probe"`
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	RedisURL   string `mapstructure:"redis_url"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type DeviceConfig struct {
	Address        string `mapstructure:"address"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RemediationConfig struct {
	WaitSeconds   int `mapstructure:"wait_seconds"`
	RetryAttempts int `mapstructure:"retry_attempts"`
}

type ProbeConfig struct {
	Address         string `mapstructure:"address"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c RemediationConfig) Wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

func (c ProbeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ProbeConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c DeviceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// Load reads configuration from flags, environment, and the config file.
// Flag values override file values, which override defaults.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("netpulse", pflag.ContinueOnError)
	flags.String("config", "", "Path to configuration file")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.String("database", "", "Path to the sample database")
	flags.String("listen", "", "HTTP listen address")
	if err := flags.Parse(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetConfigName("netpulse")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")

	if path := configPathOverride(flags); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NETPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	bindFlag(v, flags, "log-level", "log_level")
	bindFlag(v, flags, "database", "database")
	bindFlag(v, flags, "listen", "listen")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if !isValidLogLevel(config.LogLevel) {
		return nil, errFactory.WithData(errors.ErrInvalidLogLevel, config.LogLevel)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("database", defaultDBPath)
	v.SetDefault("listen", defaultListenAddr)
	v.SetDefault("refresh_minutes", defaultRefreshMinutes)
	v.SetDefault("cache.backend", defaultCacheBackend)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl_seconds", defaultCacheTTLSeconds)
	v.SetDefault("device.timeout_seconds", defaultDeviceTimeout)
	v.SetDefault("remediation.wait_seconds", defaultWaitSeconds)
	v.SetDefault("remediation.retry_attempts", defaultRetryAttempts)
	v.SetDefault("probe.address", defaultProbeAddress)
	v.SetDefault("probe.timeout_seconds", defaultProbeTimeout)
	v.SetDefault("probe.interval_seconds", defaultProbeInterval)
}

func configPathOverride(flags *pflag.FlagSet) string {
	if path, err := flags.GetString("config"); err == nil && path != "" {
		return path
	}

	return os.Getenv("NETPULSE_CONFIG")
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, flagName, key string) {
	if flag := flags.Lookup(flagName); flag != nil && flag.Changed {
		v.Set(key, flag.Value.String())
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "warn", "error":
		return true
	default:
		return false
	}
}

// LoggerLevels maps the configured log level onto the logger's debug and
// verbose switches.
func (c Config) LoggerLevels() (debug, verbose bool) {
	switch c.LogLevel {
	case "debug":
		return true, false
	case "info":
		return false, true
	default:
		return false, false
	}
}
