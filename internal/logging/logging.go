// Package logging initializes the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the root logger. Level comes from HANDOVER_LOG_LEVEL (default
// info); HANDOVER_LOG_PRETTY=true switches to the console writer for local
// use.
func New() zerolog.Logger {
	var logger zerolog.Logger
	if strings.EqualFold(os.Getenv("HANDOVER_LOG_PRETTY"), "true") {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("HANDOVER_LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	return logger.Level(level)
}
