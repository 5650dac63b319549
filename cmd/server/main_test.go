package main

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/signal-relay/internal/server"
)

func TestFlagsDefaultToEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("HEALTH_PATH", "/ready")

	cmd := newRootCommand()

	port, err := cmd.Flags().GetString("port")
	require.NoError(t, err)
	assert.Equal(t, "9100", port)

	healthPath, err := cmd.Flags().GetString("health-path")
	require.NoError(t, err)
	assert.Equal(t, "/ready", healthPath)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := server.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindFlags(flags, cfg)

	err := flags.Parse([]string{
		"--port", "9200",
		"--allowed-origins", "https://a.example.com,https://b.example.com",
		"--ping-interval", "5s",
		"--metrics-path", "",
	})
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Empty(t, cfg.MetricsPath)
	assert.Equal(t, "/healthz", cfg.HealthPath)
}

func TestInvalidFlagsAreRejected(t *testing.T) {
	tests := []string{
		"--write-timeout=0",
		"--max-message-size=0",
		"--max-message-size=-5",
		"--ping-interval=-1s",
	}

	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{"--port", "0", "--host", "127.0.0.1", arg})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}
