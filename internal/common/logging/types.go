// Package logging defines the structured logging surface used across the
// server. Everything logs through the Logger interface; the zap adapter is
// the production implementation.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Field is one key-value pair attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the structured logger every component receives. Error takes the
// error as its own argument rather than a field so adapters can render it
// consistently.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// LogLevel is the severity threshold of a log entry
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the upper-case name of the level
func (l LogLevel) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a level name to its LogLevel. Unrecognized names fall back
// to InfoLevel so a typo in LOG_LEVEL never silences the logs.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LogConfig configures a logger instance
type LogConfig struct {
	Level      LogLevel
	Output     io.Writer // nil means stdout
	TimeFormat string
	Prefix     string
}

// DefaultLogConfig reads the level from LOG_LEVEL and leaves the rest at
// sensible defaults
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      ParseLevel(os.Getenv("LOG_LEVEL")),
		TimeFormat: time.RFC3339,
	}
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
	initOnce     sync.Once
)

// SetGlobalLogger replaces the process-wide logger
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger, constructing the default
// one on first use
func GetGlobalLogger() Logger {
	initOnce.Do(func() {
		globalLogger = NewDefaultLogger()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs at debug level through the global logger
func Debug(msg string, fields ...Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs at info level through the global logger
func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs at warn level through the global logger
func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs at error level through the global logger
func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}
