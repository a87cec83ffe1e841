// Package models contains the core data structures for Emberwatch.
package models

import (
	"encoding/json"
	"time"
)

// LogLevel represents the severity level of a log event.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
	LevelFatal LogLevel = "FATAL"
)

// Environment identifies the deployment environment an event came from.
type Environment string

const (
	EnvDev     Environment = "DEV"
	EnvStaging Environment = "STAGING"
	EnvProd    Environment = "PROD"
)

// LogEvent represents a single structured log event emitted by a service.
// Events are immutable once written; only store retention removes them.
type LogEvent struct {
	// ID is the store-assigned identifier.
	ID string `json:"id,omitempty"`

	// ServiceName is the emitting service.
	ServiceName string `json:"serviceName"`

	// Env is the deployment environment (DEV, STAGING, PROD).
	Env Environment `json:"env"`

	// Tenant is the owning tenant.
	Tenant string `json:"tenant"`

	// Level is the severity level.
	Level LogLevel `json:"level"`

	// Message is the main log message content.
	Message string `json:"message"`

	// TraceID correlates events belonging to one request.
	TraceID string `json:"traceId,omitempty"`

	// LatencyMs is the request latency, when the event carries one.
	LatencyMs int `json:"latencyMs,omitempty"`

	// Stack is an optional stack trace.
	Stack string `json:"stack,omitempty"`

	// Timestamp is when the event occurred, in UTC.
	Timestamp time.Time `json:"timestamp"`
}

// JSON returns the event as JSON bytes.
func (e *LogEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// String returns a string representation of the event.
func (e *LogEvent) String() string {
	return e.Timestamp.Format(time.RFC3339) + " [" + string(e.Level) + "] " + e.ServiceName + ": " + e.Message
}

// IsError reports whether the event is at error severity or above.
func (e *LogEvent) IsError() bool {
	return e.Level == LevelError || e.Level == LevelFatal
}

// ParseLogLevel converts a string to LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG", "Debug":
		return LevelDebug
	case "info", "INFO", "Info":
		return LevelInfo
	case "warning", "WARNING", "Warning", "warn", "WARN", "Warn":
		return LevelWarn
	case "error", "ERROR", "Error", "err", "ERR", "Err":
		return LevelError
	case "fatal", "FATAL", "Fatal", "critical", "CRITICAL", "Critical":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// ParseEnvironment converts a string to Environment.
func ParseEnvironment(s string) Environment {
	switch s {
	case "dev", "DEV", "Dev":
		return EnvDev
	case "staging", "STAGING", "Staging":
		return EnvStaging
	case "prod", "PROD", "Prod", "production", "PRODUCTION":
		return EnvProd
	default:
		return EnvDev
	}
}

// TimeRangeFilter is a conjunctive predicate over log events. Zero-valued
// fields impose no constraint; an all-zero filter matches every event.
type TimeRangeFilter struct {
	From        time.Time   `json:"from,omitempty"`
	To          time.Time   `json:"to,omitempty"`
	ServiceName string      `json:"serviceName,omitempty"`
	Level       LogLevel    `json:"level,omitempty"`
	Env         Environment `json:"env,omitempty"`
}
