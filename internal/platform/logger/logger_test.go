package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv("DAYBRIEF_LOG_LEVEL", "")
	log := New("briefing-service")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewLevelFromEnv(t *testing.T) {
	t.Setenv("DAYBRIEF_LOG_LEVEL", "debug")
	assert.Equal(t, zerolog.DebugLevel, New("briefctl").GetLevel())

	t.Setenv("DAYBRIEF_LOG_LEVEL", "WARN")
	assert.Equal(t, zerolog.WarnLevel, New("briefctl").GetLevel())

	// Garbage never breaks startup.
	t.Setenv("DAYBRIEF_LOG_LEVEL", "loudest")
	assert.Equal(t, zerolog.InfoLevel, New("briefctl").GetLevel())
}
