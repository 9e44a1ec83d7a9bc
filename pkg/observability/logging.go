package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/venue"
	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry represents a structured log entry. Venue and Side are
// promoted to their own typed fields rather than buried in the generic
// Fields bag, since every log line this engine emits traces back to
// one venue stream or one side book.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Message    string                 `json:"message"`
	Service    string                 `json:"service"`
	TraceID    string                 `json:"trace_id,omitempty"`
	SpanID     string                 `json:"span_id,omitempty"`
	Venue      string                 `json:"venue,omitempty"`
	Side       string                 `json:"side,omitempty"`
	DurationMS int64                  `json:"duration_ms,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Logger provides structured logging with OpenTelemetry trace correlation.
type Logger struct {
	serviceName string
	logLevel    LogLevel
	format      string
}

// NewLogger creates a new structured logger.
func NewLogger(cfg config.ObservabilityConfig) *Logger {
	return &Logger{
		serviceName: cfg.ServiceName,
		logLevel:    LogLevel(cfg.LogLevel),
		format:      cfg.LogFormat,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelDebug) {
		l.log(ctx, LogLevelDebug, message, nil, "", "", 0, fields...)
	}
}

// Info logs an info message.
func (l *Logger) Info(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelInfo) {
		l.log(ctx, LogLevelInfo, message, nil, "", "", 0, fields...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelWarn) {
		l.log(ctx, LogLevelWarn, message, nil, "", "", 0, fields...)
	}
}

// Error logs an error message.
func (l *Logger) Error(ctx context.Context, message string, err error, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelError) {
		l.log(ctx, LogLevelError, message, err, "", "", 0, fields...)
	}
}

func (l *Logger) log(ctx context.Context, level LogLevel, message string, err error, venueName, side string, durationMS int64, fields ...map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Level:      level,
		Message:    message,
		Service:    l.serviceName,
		Venue:      venueName,
		Side:       side,
		DurationMS: durationMS,
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		entry.TraceID = span.SpanContext().TraceID().String()
		entry.SpanID = span.SpanContext().SpanID().String()
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{})
		for _, fieldMap := range fields {
			for k, v := range fieldMap {
				entry.Fields[k] = v
			}
		}
	}

	l.output(entry)
}

func (l *Logger) output(entry LogEntry) {
	if l.format == "json" {
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(os.Stdout, string(data))
		} else {
			log.Printf("failed to marshal log entry: %v", err)
		}
		return
	}
	line := fmt.Sprintf("[%s] %s %s: %s", entry.Timestamp, entry.Level, entry.Service, entry.Message)
	if entry.Venue != "" {
		line += fmt.Sprintf(" venue=%s", entry.Venue)
	}
	if entry.Side != "" {
		line += fmt.Sprintf(" side=%s", entry.Side)
	}
	if entry.DurationMS > 0 {
		line += fmt.Sprintf(" duration_ms=%d", entry.DurationMS)
	}
	fmt.Println(line)
}

func (l *Logger) shouldLog(level LogLevel) bool {
	levels := map[LogLevel]int{
		LogLevelDebug: 0,
		LogLevelInfo:  1,
		LogLevelWarn:  2,
		LogLevelError: 3,
	}

	configuredLevel, exists := levels[l.logLevel]
	if !exists {
		configuredLevel = levels[LogLevelInfo]
	}

	messageLevel, exists := levels[level]
	if !exists {
		return false
	}

	return messageLevel >= configuredLevel
}

// VenueLogger is a logger pinned to one venue stream, used by the venue
// adapters so every line they emit (subscribe errors, malformed frames,
// reconnects) carries its venue without the caller repeating it at
// every call site.
type VenueLogger struct {
	logger *Logger
	venue  string
}

// WithVenue pins this logger to a venue name.
func (l *Logger) WithVenue(v venue.ID) *VenueLogger {
	return &VenueLogger{logger: l, venue: v.String()}
}

func (vl *VenueLogger) Debug(ctx context.Context, message string) {
	vl.logger.log(ctx, LogLevelDebug, message, nil, vl.venue, "", 0)
}

func (vl *VenueLogger) Info(ctx context.Context, message string) {
	vl.logger.log(ctx, LogLevelInfo, message, nil, vl.venue, "", 0)
}

func (vl *VenueLogger) Warn(ctx context.Context, message string) {
	vl.logger.log(ctx, LogLevelWarn, message, nil, vl.venue, "", 0)
}

func (vl *VenueLogger) Error(ctx context.Context, message string, err error) {
	vl.logger.log(ctx, LogLevelError, message, err, vl.venue, "", 0)
}

// SweepLogger reports sweeps that took longer than expected for one
// side's book, pinning Side onto the entry instead of passing it
// through a generic fields map on every call.
type SweepLogger struct {
	logger *Logger
}

// NewSweepLogger creates a sweep-duration logger.
func NewSweepLogger(logger *Logger) *SweepLogger {
	return &SweepLogger{logger: logger}
}

// LogSlowSweep warns when a sweep of side exceeded threshold, carrying
// the measured duration and the side it ran against as typed fields.
func (sl *SweepLogger) LogSlowSweep(ctx context.Context, side book.Side, elapsed, threshold time.Duration) {
	if elapsed <= threshold {
		return
	}
	if !sl.logger.shouldLog(LogLevelWarn) {
		return
	}
	sl.logger.log(ctx, LogLevelWarn, fmt.Sprintf("sweep exceeded %s threshold", threshold), nil, "", side.String(), elapsed.Milliseconds())
}
