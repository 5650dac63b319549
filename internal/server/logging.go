package server

import (
	"log/syslog"
	"os"

	mozlog "github.com/mozilla-services/go-mozlogrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

const loggerName = "signal-relay"

// NewLogger builds the process logger described by cfg. In production the
// mozlog formatter is used and, when SyslogAddr is set, entries are also
// shipped to syslog over UDP.
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = os.Stderr

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	logger.SetLevel(level)

	if !cfg.Production() {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		return logger, nil
	}

	logger.Formatter = &mozlog.MozLogFormatter{
		LoggerName: loggerName,
	}

	if cfg.SyslogAddr != "" {
		hook, err := lSyslog.NewSyslogHook("udp", cfg.SyslogAddr, syslog.LOG_INFO, loggerName)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to syslog at %s", cfg.SyslogAddr)
		}
		logger.Hooks.Add(hook)
	}

	return logger, nil
}
