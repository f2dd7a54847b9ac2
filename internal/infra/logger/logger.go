package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"recurring_payments/internal/infra/config"
)

// Log is the process logger. Components get entries derived from it.
var Log = logrus.New()

// Init configures Log from the application configuration: JSON output in
// production and staging, coloured text elsewhere.
func Init(cfg *config.AppConfig) *logrus.Logger {
	configure(Log, cfg, os.Stdout)
	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
	return Log
}

func configure(l *logrus.Logger, cfg *config.AppConfig, out io.Writer) {
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.IsProduction() {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
