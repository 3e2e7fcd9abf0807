package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Unshare     string        `mapstructure:"MICRONET_UNSHARE"`
	Nsenter     string        `mapstructure:"MICRONET_NSENTER"`
	Placeholder string        `mapstructure:"MICRONET_PLACEHOLDER"`
	Shell       string        `mapstructure:"MICRONET_SHELL"`
	TermGrace   time.Duration `mapstructure:"MICRONET_TERM_GRACE"`
	KillGrace   time.Duration `mapstructure:"MICRONET_KILL_GRACE"`
	PrefixLen   int           `mapstructure:"MICRONET_PREFIX_LEN"`
	OvsSudo     bool          `mapstructure:"MICRONET_OVS_SUDO"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"MICRONET_UNSHARE":     "/usr/bin/unshare",
	"MICRONET_NSENTER":     "/usr/bin/nsenter",
	"MICRONET_PLACEHOLDER": "/bin/cat",
	"MICRONET_SHELL":       "bash",
	"MICRONET_TERM_GRACE":  "10s",
	"MICRONET_KILL_GRACE":  "2s",
	"MICRONET_PREFIX_LEN":  8,
	"MICRONET_OVS_SUDO":    false,
	"LOG_LEVEL":            "info",
}

// Default returns the built-in configuration without reading the
// environment.
func Default() *Config {
	return &Config{
		Unshare:     "/usr/bin/unshare",
		Nsenter:     "/usr/bin/nsenter",
		Placeholder: "/bin/cat",
		Shell:       "bash",
		TermGrace:   10 * time.Second,
		KillGrace:   2 * time.Second,
		PrefixLen:   8,
		LogLevel:    "info",
	}
}

// Load reads the optional env file at path (".env" when empty), then
// environment variables, on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	// A missing env file is fine, defaults and the environment still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.PrefixLen < 0 || cfg.PrefixLen > 128 {
		return nil, errors.New("MICRONET_PREFIX_LEN out of range")
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
