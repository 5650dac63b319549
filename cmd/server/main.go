package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/signal-relay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the environment may be set by the platform.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := server.NewConfigFromEnv()

	cmd := &cobra.Command{
		Use:   "signal-relay",
		Short: "WebSocket relay that broadcasts every message to all other connected clients",
		Long: `signal-relay accepts WebSocket connections on any path and relays each
message, unmodified, to every other connected client. It is meant to carry
signaling traffic between peers negotiating a direct connection.

Every flag defaults to the matching environment variable (PORT, HOST,
HEALTH_PATH, METRICS_PATH, ALLOWED_ORIGINS, MAX_MESSAGE_SIZE, WRITE_TIMEOUT,
PING_INTERVAL, LOG_LEVEL, ENV, SYSLOG_ADDR), which may also be set in a .env
file in the working directory.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	bindFlags(cmd.Flags(), cfg)

	return cmd
}

// bindFlags exposes every setting as a flag whose default is the value
// already loaded from the environment.
func bindFlags(flags *pflag.FlagSet, cfg *server.Config) {
	flags.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on")
	flags.StringVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringVar(&cfg.HealthPath, "health-path", cfg.HealthPath, "path answered with 200 OK for liveness probes")
	flags.StringVar(&cfg.MetricsPath, "metrics-path", cfg.MetricsPath, "path serving Prometheus metrics (empty disables)")
	flags.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "browser origins allowed to connect (* allows all)")
	flags.Int64Var(&cfg.MaxMessageSize, "max-message-size", cfg.MaxMessageSize, "maximum inbound message size in bytes")
	flags.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for each outbound send")
	flags.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "keepalive ping interval (0 disables)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "deployment environment; production switches to mozlog JSON output")
	flags.StringVar(&cfg.SyslogAddr, "syslog-addr", cfg.SyslogAddr, "UDP syslog address for production logs")
}

func run(ctx context.Context, cfg *server.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := server.NewLogger(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
		return err
	}
	if err := <-errChan; err != nil {
		return err
	}

	logger.Info("Signaling relay stopped")
	return nil
}
