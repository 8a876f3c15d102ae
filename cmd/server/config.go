package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/chorecast/internal/config"
)

// loadAppConfig loads the application configuration from environment variables
// and an optional config file. An empty path searches the working directory.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadWithPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"batch_timezone", cfg.Batch.Timezone,
		"holiday_country", cfg.Holiday.Country)

	return cfg, nil
}
