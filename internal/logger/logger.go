// Package logger configures the process-wide zerolog logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
// Pretty console output is used in development; JSON everywhere else.
func Setup(appEnv, levelName string) zerolog.Level {
	if appEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := ParseLevel(levelName)
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")

	return level
}

// SetupFromEnv reads APP_ENV and LOG_LEVEL directly so logging works before config is loaded
func SetupFromEnv() zerolog.Level {
	return Setup(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// ParseLevel returns the zerolog level for name, falling back to info
func ParseLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
