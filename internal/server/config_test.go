package server_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/signal-relay/internal/server"
)

// TestNewConfig verifies the defaults a deployment gets without any
// environment configured.
func TestNewConfig(t *testing.T) {
	cfg := server.NewConfig()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "8765", cfg.Port)
	assert.Equal(t, "0.0.0.0:8765", cfg.Addr())
	assert.Equal(t, "/healthz", cfg.HealthPath)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1<<20), cfg.MaxMessageSize)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 20*time.Second, cfg.PingInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Production())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("HEALTH_PATH", "live")
	t.Setenv("METRICS_PATH", "/stats")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("WRITE_TIMEOUT", "3")
	t.Setenv("PING_INTERVAL", "0")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("ENV", "Production")
	t.Setenv("SYSLOG_ADDR", "localhost:514")

	cfg := server.NewConfigFromEnv()

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "/live", cfg.HealthPath)
	assert.Equal(t, "/stats", cfg.MetricsPath)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, time.Duration(0), cfg.PingInterval, "zero disables keepalive")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Production())
	assert.Equal(t, "localhost:514", cfg.SyslogAddr)
}

func TestNewConfigFromEnvInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg *server.Config)
	}{
		{
			name: "non-numeric port", key: "PORT", value: "http",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, "8765", cfg.Port) },
		},
		{
			name: "port out of range", key: "PORT", value: "70000",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, "8765", cfg.Port) },
		},
		{
			name: "port with colon prefix", key: "PORT", value: ":8081",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, "8081", cfg.Port) },
		},
		{
			name: "negative message size", key: "MAX_MESSAGE_SIZE", value: "-1",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, int64(1<<20), cfg.MaxMessageSize) },
		},
		{
			name: "zero write timeout", key: "WRITE_TIMEOUT", value: "0",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, 10*time.Second, cfg.WriteTimeout) },
		},
		{
			name: "garbage ping interval", key: "PING_INTERVAL", value: "often",
			check: func(t *testing.T, cfg *server.Config) { assert.Equal(t, 20*time.Second, cfg.PingInterval) },
		},
		{
			name: "empty metrics path disables metrics", key: "METRICS_PATH", value: "",
			check: func(t *testing.T, cfg *server.Config) { assert.Empty(t, cfg.MetricsPath) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			tt.check(t, server.NewConfigFromEnv())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, server.NewConfig().Validate())
	})

	t.Run("normalizes paths and port", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.HealthPath = " ready "
		cfg.MetricsPath = "stats"
		cfg.Port = ":9000"

		require.NoError(t, cfg.Validate())
		assert.Equal(t, "/ready", cfg.HealthPath)
		assert.Equal(t, "/stats", cfg.MetricsPath)
		assert.Equal(t, "9000", cfg.Port)
	})

	t.Run("empty metrics path stays disabled", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.MetricsPath = ""

		require.NoError(t, cfg.Validate())
		assert.Empty(t, cfg.MetricsPath)
	})

	tests := []struct {
		name   string
		mutate func(cfg *server.Config)
	}{
		{name: "zero write timeout", mutate: func(cfg *server.Config) { cfg.WriteTimeout = 0 }},
		{name: "negative write timeout", mutate: func(cfg *server.Config) { cfg.WriteTimeout = -time.Second }},
		{name: "zero max message size", mutate: func(cfg *server.Config) { cfg.MaxMessageSize = 0 }},
		{name: "negative max message size", mutate: func(cfg *server.Config) { cfg.MaxMessageSize = -1 }},
		{name: "negative ping interval", mutate: func(cfg *server.Config) { cfg.PingInterval = -time.Second }},
		{name: "non-numeric port", mutate: func(cfg *server.Config) { cfg.Port = "http" }},
		{name: "port out of range", mutate: func(cfg *server.Config) { cfg.Port = "70000" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := server.NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
