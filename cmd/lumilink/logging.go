package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ItsSilva/lumilink/internal/config"
)

// configureLogging installs the process-wide logger on stderr so log
// lines never interleave with command output. The --log-level flag
// wins over the config file value.
func configureLogging(cfg *config.Config) error {
	level := cfg.LogLevel
	if flagLogLevel != "" {
		switch flagLogLevel {
		case "debug", "info", "warn", "error":
			level = flagLogLevel
		default:
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", flagLogLevel)
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(level),
	})
	slog.SetDefault(slog.New(handler))
	return nil
}
