package config

import "time"

// Config represents the complete lockrun configuration.
type Config struct {
	Redis RedisConfig `koanf:"redis"`
	Lock  LockConfig  `koanf:"lock"`
	Run   RunConfig   `koanf:"run"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Address   string `koanf:"address"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// LockConfig sets the defaults applied to the lock lockrun takes.
type LockConfig struct {
	// Timeout is the lease applied to the lock key. A command expected to
	// outlive it will lose exclusivity silently; size it generously.
	Timeout time.Duration `koanf:"timeout"`

	// Retries is how many extra acquisition attempts to make when the
	// resource is contended.
	Retries int `koanf:"retries"`

	// Delay is the constant wait between acquisition attempts.
	Delay time.Duration `koanf:"delay"`
}

// RunConfig controls how the guarded command is executed.
type RunConfig struct {
	WorkDir string            `koanf:"work_dir"`
	Env     map[string]string `koanf:"env"`
	Timeout time.Duration     `koanf:"timeout"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{
			Address:   "localhost:6379",
			KeyPrefix: "lockrun:",
		},
		Lock: LockConfig{
			Timeout: 10 * time.Second,
			Retries: 0,
			Delay:   100 * time.Millisecond,
		},
	}
}
