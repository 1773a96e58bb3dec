// Package config loads ProcessingServer options from file and
// environment, with hot-reload support, the way the rest of this stack's
// services load their configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Options holds the ProcessingServer's tunables.
type Options struct {
	Environment string `mapstructure:"environment" yaml:"environment"`

	StopTimeoutSeconds       int `mapstructure:"stop_timeout_seconds" yaml:"stop_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	LastChanceTimeoutSeconds int `mapstructure:"last_chance_timeout_seconds" yaml:"last_chance_timeout_seconds"`
	RestartDelaySeconds      int `mapstructure:"restart_delay_seconds" yaml:"restart_delay_seconds"`

	MaxRetryAttempts     int `mapstructure:"max_retry_attempts" yaml:"max_retry_attempts"`
	MaxRetryDelaySeconds int `mapstructure:"max_retry_delay_seconds" yaml:"max_retry_delay_seconds"`
}

func (o Options) StopTimeout() time.Duration {
	return time.Duration(o.StopTimeoutSeconds) * time.Second
}

func (o Options) ShutdownTimeout() time.Duration {
	return time.Duration(o.ShutdownTimeoutSeconds) * time.Second
}

func (o Options) LastChanceTimeout() time.Duration {
	return time.Duration(o.LastChanceTimeoutSeconds) * time.Second
}

func (o Options) RestartDelay() time.Duration {
	return time.Duration(o.RestartDelaySeconds) * time.Second
}

func (o Options) MaxRetryDelay() time.Duration {
	return time.Duration(o.MaxRetryDelaySeconds) * time.Second
}

// Validate enforces the invariant "stopping no later than stopped no
// later than shutdown" by construction.
func (o Options) Validate() error {
	switch {
	case o.StopTimeoutSeconds < 0:
		return fmt.Errorf("config: stop_timeout_seconds must be >= 0")
	case o.ShutdownTimeoutSeconds < o.StopTimeoutSeconds:
		return fmt.Errorf("config: shutdown_timeout_seconds (%d) must be >= stop_timeout_seconds (%d)", o.ShutdownTimeoutSeconds, o.StopTimeoutSeconds)
	case o.MaxRetryAttempts < 1:
		return fmt.Errorf("config: max_retry_attempts must be >= 1")
	}
	return nil
}

var configChangeHooks []func(*Options)

// AddConfigChangeHook registers a function to be called whenever the
// watched config file changes on disk.
func AddConfigChangeHook(hook func(*Options)) {
	configChangeHooks = append(configChangeHooks, hook)
}

// Load reads options from ./config.yaml (or ./configs, or /etc/kiln),
// environment variables prefixed KILN_, and defaults, in that order of
// increasing precedence for explicit settings and decreasing for
// defaults. It then watches the config file for changes.
func Load() (*Options, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/kiln")

	v.AutomaticEnv()
	v.SetEnvPrefix("KILN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("environment", "development")
	v.SetDefault("stop_timeout_seconds", 15)
	v.SetDefault("shutdown_timeout_seconds", 30)
	v.SetDefault("last_chance_timeout_seconds", 5)
	v.SetDefault("restart_delay_seconds", 10)
	v.SetDefault("max_retry_attempts", 10)
	v.SetDefault("max_retry_delay_seconds", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var reloaded Options
		if err := v.Unmarshal(&reloaded); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("re-unmarshal config after %s changed: %w", e.Name, err))
			return
		}
		if err := reloaded.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("reloaded config invalid: %w", err))
			return
		}
		for _, hook := range configChangeHooks {
			hook(&reloaded)
		}
	})

	return &opts, nil
}

// Default returns the built-in defaults without touching the filesystem.
func Default() *Options {
	return &Options{
		Environment:              "development",
		StopTimeoutSeconds:       15,
		ShutdownTimeoutSeconds:   30,
		LastChanceTimeoutSeconds: 5,
		RestartDelaySeconds:      10,
		MaxRetryAttempts:         10,
		MaxRetryDelaySeconds:     60,
	}
}

// SaveDefault writes Default() to filename as YAML, for operators to
// copy and edit.
func SaveDefault(filename string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
