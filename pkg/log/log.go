// Package log provides the process-wide structured logger, a thin wrapper
// around logrus shared by every pipeline stage and the CLI.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the logging level ("debug", "info", "warn", "error", ...).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to JSON log lines, for shipping to a log
// aggregator in production.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns an entry with one structured field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns an entry with several structured fields attached.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithDevice scopes a log entry to a device.
func WithDevice(device string) *logrus.Entry {
	return Logger.WithField("device", device)
}

// WithBD scopes a log entry to a bridge domain.
func WithBD(bdName string) *logrus.Entry {
	return Logger.WithField("bd", bdName)
}

// WithSession scopes a log entry to an edit session.
func WithSession(sessionID string) *logrus.Entry {
	return Logger.WithField("session", sessionID)
}

// WithOperation scopes a log entry to a named operation (e.g. "discover",
// "deploy").
func WithOperation(operation string) *logrus.Entry {
	return Logger.WithField("operation", operation)
}
