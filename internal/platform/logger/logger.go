// Package logger builds the zerolog loggers used by the daybrief binaries.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout, tagged with the binary's
// service name. The level comes from DAYBRIEF_LOG_LEVEL and defaults to
// info; an unparseable value falls back to info rather than failing startup.
func New(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(levelFromEnv()).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

func levelFromEnv() zerolog.Level {
	raw := strings.TrimSpace(os.Getenv("DAYBRIEF_LOG_LEVEL"))
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
