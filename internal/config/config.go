package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "suspendctl.conf"
	configType = "toml"
	configDir  = "/etc"

	// Environment variable pointing at an explicit config file,
	// primarily for tests and ad-hoc runs.
	configEnv = "SUSPENDCTL_CONFIG"

	DefaultInterval     = 60
	DefaultIdleTime     = 300
	DefaultMinSleepTime = 1200
	DefaultWakeupDelta  = 30
	DefaultLockTimeout  = 30
	DefaultWokeUpFile   = "/var/run/suspendctl-just-woke-up"
	DefaultLockFile     = "/var/lock/suspendctl.lock"
)

// Config carries the daemon settings plus the raw check and wakeup
// tables. Probe options stay untyped here; the check registry interprets
// them per class.
type Config struct {
	Interval          int    `mapstructure:"interval"`
	IdleTime          int    `mapstructure:"idle_time"`
	MinSleepTime      int    `mapstructure:"min_sleep_time"`
	WakeupDelta       int    `mapstructure:"wakeup_delta"`
	AllChecks         bool   `mapstructure:"all_checks"`
	SuspendCmd        string `mapstructure:"suspend_cmd"`
	WakeupCmd         string `mapstructure:"wakeup_cmd"`
	NotifyCmdWakeup   string `mapstructure:"notify_cmd_wakeup"`
	NotifyCmdNoWakeup string `mapstructure:"notify_cmd_no_wakeup"`
	WokeUpFile        string `mapstructure:"woke_up_file"`
	LockFile          string `mapstructure:"lock_file"`
	LockTimeout       int    `mapstructure:"lock_timeout"`
	LogFile           string `mapstructure:"log_file"`
	Debug             bool   `mapstructure:"debug"`
	Verbose           bool   `mapstructure:"verbose"`

	History HistoryConfig `mapstructure:"history"`

	Checks  map[string]map[string]any `mapstructure:"check"`
	Wakeups map[string]map[string]any `mapstructure:"wakeup"`
}

// HistoryConfig configures the optional iteration decision log.
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Path         string `mapstructure:"path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: "SUSPENDCTL"}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	v.SetConfigType(configType)

	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	switch {
	case o.configPath != "":
		v.SetConfigFile(o.configPath)
	case os.Getenv(configEnv) != "":
		v.SetConfigFile(os.Getenv(configEnv))
	default:
		v.SetConfigName(configName)
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Command line flags take precedence over file values. Flag names use
	// dashes, config keys underscores.
	if o.flags != nil {
		var bindErr error
		o.flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("idle_time", DefaultIdleTime)
	v.SetDefault("min_sleep_time", DefaultMinSleepTime)
	v.SetDefault("wakeup_delta", DefaultWakeupDelta)
	v.SetDefault("lock_timeout", DefaultLockTimeout)
	v.SetDefault("woke_up_file", DefaultWokeUpFile)
	v.SetDefault("lock_file", DefaultLockFile)
}

// Validate checks the engine timing invariants. Per-command requirements
// (suspend command present, enabled activity checks) are enforced where
// the respective registry is built.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.IdleTime < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "idle_time must not be negative")
	}
	if c.MinSleepTime < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "min_sleep_time must not be negative")
	}
	if c.WakeupDelta < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "wakeup_delta must not be negative")
	}
	if c.LockTimeout <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "lock_timeout must be positive")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history.path required when history is enabled")
	}

	return nil
}
