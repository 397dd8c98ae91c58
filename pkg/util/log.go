package util

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// DebugLogName returns the file name used for a debug log started at t,
// e.g. "newtgrade-debug-2026-10-19-14:03:55.log".
func DebugLogName(t time.Time) string {
	return fmt.Sprintf("newtgrade-debug-%s.log", t.Format("2006-01-02-15:04:05"))
}

// EnableDebugFile routes all log output to a new debug file in dir at debug
// level. The caller owns the returned file and should close it on exit.
func EnableDebugFile(dir string) (*os.File, error) {
	name := DebugLogName(time.Now())
	if dir != "" {
		name = dir + string(os.PathSeparator) + name
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}
	Logger.SetOutput(f)
	Logger.SetLevel(logrus.DebugLevel)
	Logger.Debug("Starting debug file")
	return f, nil
}

// WithField returns a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger with multiple fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithDevice returns a logger with device context
func WithDevice(device string) *logrus.Entry {
	return Logger.WithField("device", device)
}

// WithPhase returns a logger scoped to a device and upgrade phase
func WithPhase(device, phase string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"device": device, "phase": phase})
}

// WithCategory returns a logger scoped to a snapshot category
func WithCategory(category string) *logrus.Entry {
	return Logger.WithField("category", category)
}

// Debug logs a debug message
func Debug(args ...interface{}) {
	Logger.Debug(args...)
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Info logs an info message
func Info(args ...interface{}) {
	Logger.Info(args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warn logs a warning message
func Warn(args ...interface{}) {
	Logger.Warn(args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
