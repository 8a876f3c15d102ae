package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Batch    BatchConfig    `mapstructure:"batch" validate:"required"`
	Holiday  HolidayConfig  `mapstructure:"holiday" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// ConnMaxLifetime returns the pool connection lifetime.
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeMinutes) * time.Minute
}

// BatchConfig controls the daily execution runner and its trigger.
type BatchConfig struct {
	WorkerCount              int     `mapstructure:"worker_count" validate:"required,gte=1,lte=64"`
	OccurrenceTimeoutSeconds int     `mapstructure:"occurrence_timeout_seconds" validate:"required,gte=1"`
	Timezone                 string  `mapstructure:"timezone" validate:"required,timezone"`
	CronSpec                 string  `mapstructure:"cron_spec" validate:"required"`
	CronEnabled              bool    `mapstructure:"cron_enabled"`
	HistoryLimit             int     `mapstructure:"history_limit" validate:"required,gte=1,lte=200"`
	DispatchRate             float64 `mapstructure:"dispatch_rate" validate:"gte=0"`
}

// OccurrenceTimeout returns the per-occurrence deadline.
func (b BatchConfig) OccurrenceTimeout() time.Duration {
	return time.Duration(b.OccurrenceTimeoutSeconds) * time.Second
}

// Location returns the batch time zone. Load has already validated the name.
func (b BatchConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HolidayConfig selects the public holiday calendar.
type HolidayConfig struct {
	Country                string `mapstructure:"country" validate:"required,oneof=JP US"`
	WeekendsAreNonBusiness bool   `mapstructure:"weekends_are_non_business"`
	MaxShiftDays           int    `mapstructure:"max_shift_days" validate:"required,gte=1,lte=60"`
}
