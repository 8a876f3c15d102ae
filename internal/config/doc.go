// Package config loads server, database, batch and holiday settings with
// viper from RECUR_-prefixed environment variables and an optional YAML
// file, then validates them with struct tags and a cron spec parse.
package config
