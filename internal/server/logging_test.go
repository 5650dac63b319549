package server_test

import (
	"testing"

	mozlog "github.com/mozilla-services/go-mozlogrus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/signal-relay/internal/server"
)

func TestNewLoggerDevelopment(t *testing.T) {
	cfg := server.NewConfig()
	cfg.LogLevel = "warn"

	logger, err := server.NewLogger(cfg)
	require.NoError(t, err)

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewLoggerProduction(t *testing.T) {
	cfg := server.NewConfig()
	cfg.Env = "production"

	logger, err := server.NewLogger(cfg)
	require.NoError(t, err)

	formatter, ok := logger.Formatter.(*mozlog.MozLogFormatter)
	require.True(t, ok, "expected mozlog formatter, got %T", logger.Formatter)
	assert.Equal(t, "signal-relay", formatter.LoggerName)
	assert.Empty(t, logger.Hooks, "no syslog hook without SYSLOG_ADDR")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	cfg := server.NewConfig()
	cfg.LogLevel = "chatty"

	_, err := server.NewLogger(cfg)
	assert.Error(t, err)
}
