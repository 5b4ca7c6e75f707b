// Package config loads engine defaults from file and environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tbxark/formstate"
)

// Config holds library configuration.
type Config struct {
	Form FormConfig
	Log  LogConfig
}

// FormConfig holds engine tuning knobs.
type FormConfig struct {
	CallbackDebounce time.Duration `mapstructure:"callback_debounce"`
	NotifyInterval   time.Duration `mapstructure:"notify_interval"`
	CacheLimit       int           `mapstructure:"cache_limit"`
	AutoValidate     bool          `mapstructure:"auto_validate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix
// FORMSTATE_; FORMSTATE_CONFIG points at an explicit config file.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("form.callback_debounce", formstate.DefaultCallbackDebounce)
	v.SetDefault("form.notify_interval", formstate.DefaultNotifyInterval)
	v.SetDefault("form.cache_limit", formstate.DefaultCacheLimit)
	v.SetDefault("form.auto_validate", true)
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FORMSTATE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("formstate")
	}

	v.SetEnvPrefix("FORMSTATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if c.Form.CacheLimit <= 0 {
		return Config{}, fmt.Errorf("config: cache_limit must be positive, got %d", c.Form.CacheLimit)
	}
	return c, nil
}

// Options converts the form section into engine options.
func (c Config) Options() []formstate.Option {
	return []formstate.Option{
		formstate.WithCallbackDebounce(c.Form.CallbackDebounce),
		formstate.WithNotifyInterval(c.Form.NotifyInterval),
		formstate.WithCacheLimit(c.Form.CacheLimit),
		formstate.WithAutoValidate(c.Form.AutoValidate),
	}
}

// Logger builds a slog logger honoring the configured level.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
