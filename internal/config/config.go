// Package config loads and validates the randomness oracle's configuration
// surface: command-line flags and STAR_*-prefixed environment variables
// take precedence over an optional YAML file, which takes precedence over
// defaults. Built on viper, mapstructure, and go-playground/validator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full, validated configuration for a star-randsrv process.
type Config struct {
	// Listen is the address:port the HTTP service binds to.
	Listen string `mapstructure:"listen" validate:"required"`

	// EpochSeconds is the duration of one epoch, in seconds.
	EpochSeconds uint32 `mapstructure:"epoch_seconds" validate:"required,gt=0"`

	// FirstEpoch and LastEpoch bound the closed range of epoch tags the
	// server cycles through. FirstEpoch must be <= LastEpoch.
	FirstEpoch uint8 `mapstructure:"first_epoch"`
	LastEpoch  uint8 `mapstructure:"last_epoch" validate:"gtefield=FirstEpoch"`

	// EpochBaseTime anchors the epoch schedule. Nil means "use process
	// start time", i.e. the server always begins at FirstEpoch.
	EpochBaseTime *time.Time `mapstructure:"epoch_base_time"`

	// IncreaseNofileLimit raises RLIMIT_NOFILE to its hard ceiling before
	// the HTTP listener binds (Unix only; a no-op on other platforms).
	IncreaseNofileLimit bool `mapstructure:"increase_nofile_limit"`

	// PrometheusListen is the optional address:port for the metrics
	// endpoint. Empty disables the metrics server.
	PrometheusListen string `mapstructure:"prometheus_listen"`

	// Logging controls the structured logger.
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is the log line encoding.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Load loads configuration from defaults, an optional file, and
// STAR_*-prefixed environment variables, in that order of increasing
// precedence, then validates the result.
func Load(configPath string) (*Config, error) {
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags behaves like Load, but additionally binds flags (typically
// a cobra command's Flags()) into viper so any flag the user actually set
// on the command line takes precedence over the environment and file.
func LoadWithFlags(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if flags != nil {
		// Flag names use dashes ("epoch-seconds") while config keys use
		// underscores ("epoch_seconds"), so bind each flag under its key.
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: binding flags: %w", bindErr)
		}
	}

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	// Binding defaults lets viper.AutomaticEnv populate fields purely from
	// STAR_* environment variables even when no config file is present;
	// without a known default, Unmarshal silently skips unset keys.
	for key, def := range map[string]any{
		"listen":                "127.0.0.1:8080",
		"epoch_seconds":         60,
		"first_epoch":           0,
		"last_epoch":            255,
		"increase_nofile_limit": false,
		"prometheus_listen":     "",
		"logging.level":         "INFO",
		"logging.format":        "text",
	} {
		v.SetDefault(key, def)
	}
	// epoch_base_time has no default (nil means "process start"), so bind
	// it to STAR_EPOCH_BASE_TIME explicitly.
	if err := v.BindEnv("epoch_base_time"); err != nil {
		return nil, fmt.Errorf("config: binding epoch_base_time: %w", err)
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with sensible defaults. Load
// always runs this after Unmarshal as a backstop; callers constructing a
// Config by hand (tests, embedding) can call it directly too.
func ApplyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8080"
	}
	if cfg.EpochSeconds == 0 {
		cfg.EpochSeconds = 60
	}
	cfg.Logging.Level = strings.ToUpper(orDefault(cfg.Logging.Level, "INFO"))
	cfg.Logging.Format = orDefault(cfg.Logging.Format, "text")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Validate checks the configuration's struct tags and cross-field
// invariants (first_epoch <= last_epoch, epoch_seconds > 0).
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func defaultConfig() *Config {
	return &Config{}
}

// setupViper wires environment variable and config file support.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("STAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: reading config file: %w", err)
	}
	return true, nil
}

// configDir returns $XDG_CONFIG_HOME/star-randsrv, falling back to
// ~/.config/star-randsrv, or "." if the home directory can't be determined.
func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "star-randsrv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "star-randsrv")
}
