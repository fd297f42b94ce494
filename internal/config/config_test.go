package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestNewWithEnvironment(t *testing.T) {
	t.Setenv("DAYBRIEF_HTTP_PORT", "9090")
	t.Setenv("DAYBRIEF_DB_DRIVER", "postgres")
	t.Setenv("DAYBRIEF_POSTGRES_DSN", "postgres://localhost/daybrief")
	t.Setenv("DAYBRIEF_PROVIDER_TIMEOUT", "3s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
}

func TestResolveDefaultsRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{DBDriver: "oracle", ProviderTimeout: time.Second}},
		{"postgres without dsn", Config{DBDriver: "postgres", ProviderTimeout: time.Second}},
		{"sqlite without path", Config{DBDriver: "sqlite", ProviderTimeout: time.Second}},
		{"non-positive timeout", Config{DBDriver: "sqlite", SQLitePath: "x.db"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.ResolveDefaults())
		})
	}
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	assert.True(t, cfg.IsTesting())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":memory:", cfg.SQLitePath)
	require.NoError(t, cfg.ResolveDefaults())
}
