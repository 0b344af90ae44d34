// Package observability provides structured logging and in-memory
// metrics for the review engine.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Logger provides leveled structured logging.
type Logger interface {
	LogDebug(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarning
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLogFormat maps a config string to a LogFormat, defaulting to human.
func ParseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes structured logs via the standard logger.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
}

// NewDefaultLogger creates a logger with the specified level and format.
func NewDefaultLogger(level LogLevel, format LogFormat) *DefaultLogger {
	return &DefaultLogger{level: level, format: format}
}

// LogDebug logs a debug message with structured fields.
func (l *DefaultLogger) LogDebug(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelDebug, "debug", message, fields)
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelInfo, "info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelWarning, "warning", message, fields)
}

// LogError logs an error message with structured fields.
func (l *DefaultLogger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelError, "error", message, fields)
}

func (l *DefaultLogger) write(level LogLevel, name, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	if l.format == LogFormatJSON {
		payload := map[string]interface{}{
			"level":   name,
			"message": message,
		}
		for k, v := range fields {
			payload[k] = v
		}
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf(`{"level":"error","message":"log marshal failed: %v"}`, err)
			return
		}
		log.Print(string(data))
		return
	}

	log.Printf("[%s] %s%s", strings.ToUpper(name), message, formatFields(fields))
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	b.WriteString(")")
	return b.String()
}

// RedactAPIKey shows only the last 4 characters of an API key with
// explicit redaction markers.
func RedactAPIKey(key string) string {
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) LogDebug(ctx context.Context, message string, fields map[string]interface{})   {}
func (NopLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{})    {}
func (NopLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {}
func (NopLogger) LogError(ctx context.Context, message string, fields map[string]interface{})   {}
