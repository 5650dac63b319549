// Package server provides configuration helpers that define runtime defaults
// and environment overrides for the relay service.
package server

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = "8765"
	defaultHealthPath     = "/healthz"
	defaultMetricsPath    = "/metrics"
	defaultMaxMessageSize = 1 << 20
	defaultWriteTimeout   = 10 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultLogLevel       = "info"
)

// Config holds the server configuration settings.
type Config struct {
	Host           string
	Port           string
	HealthPath     string
	MetricsPath    string
	AllowedOrigins []string
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	LogLevel       string
	Env            string
	SyslogAddr     string
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host:           defaultHost,
		Port:           defaultPort,
		HealthPath:     defaultHealthPath,
		MetricsPath:    defaultMetricsPath,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: defaultMaxMessageSize,
		WriteTimeout:   defaultWriteTimeout,
		PingInterval:   defaultPingInterval,
		LogLevel:       defaultLogLevel,
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set or invalid.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}

	if path := os.Getenv("HEALTH_PATH"); path != "" {
		cfg.HealthPath = normalizePath(path)
	}

	// An explicitly empty METRICS_PATH disables the endpoint.
	if path, ok := os.LookupEnv("METRICS_PATH"); ok {
		cfg.MetricsPath = normalizePath(path)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if timeout := os.Getenv("WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseSeconds(timeout, cfg.WriteTimeout, false)
	}

	if interval := os.Getenv("PING_INTERVAL"); interval != "" {
		cfg.PingInterval = parseSeconds(interval, cfg.PingInterval, true)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(level))
	}

	cfg.Env = os.Getenv("ENV")
	cfg.SyslogAddr = os.Getenv("SYSLOG_ADDR")

	return cfg
}

// Validate normalizes the paths and checks the values that command-line flags
// may set directly, applying the same rules NewConfigFromEnv enforces.
func (c *Config) Validate() error {
	c.HealthPath = normalizePath(c.HealthPath)
	c.MetricsPath = normalizePath(c.MetricsPath)

	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return errors.Errorf("invalid port %q", c.Port)
	}
	c.Port = port

	if c.MaxMessageSize <= 0 {
		return errors.Errorf("max message size must be positive, got %d", c.MaxMessageSize)
	}
	if c.WriteTimeout <= 0 {
		return errors.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.PingInterval < 0 {
		return errors.Errorf("ping interval must not be negative, got %s", c.PingInterval)
	}
	return nil
}

// Addr returns the host:port pair the listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Production reports whether the service runs in a production environment,
// which switches logging to the mozlog JSON format.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func parsePort(value, defaultValue string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), ":")
	if port, err := strconv.Atoi(value); err == nil && port > 0 && port < 65536 {
		return value
	}
	return defaultValue
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration, allowZero bool) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 || (seconds == 0 && !allowZero) {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
