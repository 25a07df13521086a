// Package logger provides a small leveled, field-tagged logger used as the
// engine's diagnostic sink (spec: cancel/cleanup failures and phase
// timeouts are reported here rather than panicking or being swallowed).
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name, accepting "WARNING" as
// an alias for WARN.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", level)
	}
}

// Logger is a minimal structured logger: a level, a set of sticky fields,
// and a destination writer.
type Logger struct {
	level  LogLevel
	logger *log.Logger
	fields map[string]interface{}
}

// Config configures a new Logger.
type Config struct {
	Level  LogLevel
	Output io.Writer // defaults to os.Stderr
}

// New returns a Logger at INFO level writing to stderr, the default
// diagnostic sink for the scheduler and its jobs.
func New() *Logger {
	return NewWithConfig(Config{Level: INFO, Output: os.Stderr})
}

// NewWithConfig returns a Logger configured per cfg.
func NewWithConfig(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return &Logger{
		level:  cfg.Level,
		logger: log.New(cfg.Output, "", 0),
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a derived Logger carrying the given alternating
// key/value pairs in addition to any fields already set.
func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	next := &Logger{
		level:  l.level,
		logger: l.logger,
		fields: make(map[string]interface{}, len(l.fields)+len(keyVals)/2),
	}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		next.fields[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}
	return next
}

// WithField is shorthand for WithFields(key, value).
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(INFO, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(WARN, msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

func (l *Logger) SetLevel(level LogLevel) { l.level = level }
func (l *Logger) GetLevel() LogLevel      { return l.level }

func (l *Logger) log(level LogLevel, msg string, kv ...interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	allFields := make(map[string]interface{}, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		allFields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		allFields[fmt.Sprintf("%v", kv[i])] = kv[i+1]
	}

	l.logger.Print(formatLogLine(timestamp, level, msg, allFields))
}

func formatLogLine(timestamp string, level LogLevel, msg string, fields map[string]interface{}) string {
	parts := []string{fmt.Sprintf("[%s]", timestamp), fmt.Sprintf("[%s]", level.String()), msg}

	if len(fields) > 0 {
		fieldParts := make([]string, 0, len(fields))
		for key, value := range fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", key, formatValue(value)))
		}
		parts = append(parts, fmt.Sprintf("| %s", strings.Join(fieldParts, " ")))
	}

	return strings.Join(parts, " ")
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, " ") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("2006-01-02T15:04:05Z07:00")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// global logger instance, used as the engine's default diagnostic sink.
var std = New()

// Default returns the package-level default logger.
func Default() *Logger { return std }

func Debug(msg string, kv ...interface{}) { std.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { std.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { std.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { std.Error(msg, kv...) }

func WithField(key string, value interface{}) *Logger { return std.WithField(key, value) }
func WithFields(kv ...interface{}) *Logger            { return std.WithFields(kv...) }
func SetLevel(level LogLevel)                         { std.SetLevel(level) }
