package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// RECUR_DATABASE_URL for database.url.
const EnvPrefix = "RECUR"

var defaults = map[string]any{
	"server.port":                        8080,
	"server.log_level":                   "info",
	"database.url":                       "",
	"database.max_open_conns":            10,
	"database.max_idle_conns":            5,
	"database.conn_max_lifetime_minutes": 5,
	"batch.worker_count":                 4,
	"batch.occurrence_timeout_seconds":   30,
	"batch.timezone":                     "Asia/Tokyo",
	"batch.cron_spec":                    "5 0 * * *",
	"batch.cron_enabled":                 true,
	"batch.history_limit":                50,
	"batch.dispatch_rate":                0.0,
	"holiday.country":                    "JP",
	"holiday.weekends_are_non_business":  true,
	"holiday.max_shift_days":             14,
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath is Load with an explicit config file. An empty path searches
// for config.yaml in the working directory, which may be absent.
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv alone does not make nested keys visible to Unmarshal.
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross-field constraints.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := cron.ParseStandard(cfg.Batch.CronSpec); err != nil {
		return fmt.Errorf("config validation failed: batch.cron_spec: %w", err)
	}
	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		return fmt.Errorf("config validation failed: database.max_idle_conns exceeds max_open_conns")
	}
	return nil
}
