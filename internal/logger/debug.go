// Package logger provides structured logging functionality for
// gitlab-mr-conflict-detector.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// LevelTrace is the most verbose logging level
	LevelTrace = "trace"
	// LevelDebug enables detailed diagnostic output
	LevelDebug = "debug"
	// LevelInfo is the default operational level
	LevelInfo = "info"
	// LevelWarn surfaces recoverable problems
	LevelWarn = "warn"
	// LevelError surfaces failures
	LevelError = "error"
	// LevelFatal logs then terminates the process
	LevelFatal = "fatal"
	// LevelPanic logs then panics
	LevelPanic = "panic"

	// DefaultLogLevel is used when no level is configured
	DefaultLogLevel = LevelInfo

	// FormatJSON renders log entries as JSON objects, one per line
	FormatJSON = "json"
	// FormatText renders log entries as human-readable text
	FormatText = "text"

	// DefaultLogFormat is used when no format is configured
	DefaultLogFormat = FormatJSON

	// MaxLogFileSize is a log-file size limit. Logger writes only to
	// Config.Output; it does not open, buffer or rotate log files, and no
	// code in this package reads this or the four constants below.
	MaxLogFileSize = 100 * 1024 * 1024 // 100MB
	// DefaultLogFilePerm is a permission mode for log files
	DefaultLogFilePerm = 0o644
	// LogFileBufferSize is a buffered-writer size for file output
	LogFileBufferSize = 4096
	// MaxLogRotationCount is a count of rotated log files to keep
	MaxLogRotationCount = 5
	// LogRotationAge is a maximum age for a single log file
	LogRotationAge = 24 * time.Hour
)

// Config configures a Logger explicitly, as an alternative to New's
// debug-only shorthand.
type Config struct {
	Level        string
	Format       string
	Debug        bool
	ReportCaller bool
	Output       io.Writer
	Component    string
}

// Logger wraps a *logrus.Logger with structured, per-call field helpers and
// a component tag threaded through every entry it produces.
type Logger struct {
	logrus    *logrus.Logger
	level     string
	format    string
	debug     bool
	component string
}

// New creates a Logger with JSON output and a level derived from debug.
func New(debug bool) *Logger {
	level := DefaultLogLevel
	if debug {
		level = LevelDebug
	}
	return NewWithConfig(&Config{
		Level:  level,
		Format: DefaultLogFormat,
		Debug:  debug,
		Output: os.Stderr,
	})
}

// NewWithConfig creates a Logger from an explicit Config. A nil config
// produces the same defaults as New(false).
func NewWithConfig(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{Level: DefaultLogLevel, Format: DefaultLogFormat, Output: os.Stderr}
	}

	level := cfg.Level
	if level == "" {
		level = DefaultLogLevel
	}
	format := cfg.Format
	if format == "" {
		format = DefaultLogFormat
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(parseLogLevel(level))
	l.SetReportCaller(cfg.ReportCaller)
	l.SetFormatter(newFormatter(format))

	return &Logger{
		logrus:    l,
		level:     level,
		format:    format,
		debug:     cfg.Debug,
		component: cfg.Component,
	}
}

func newFormatter(format string) logrus.Formatter {
	if format == FormatText {
		return &logrus.TextFormatter{}
	}
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	}
}

// entry returns a logrus.Entry carrying the component field, if any.
func (l *Logger) entry() *logrus.Entry {
	e := logrus.NewEntry(l.logrus)
	if l.component != "" {
		e = e.WithField("component", l.component)
	}
	return e
}

// WithComponent returns a new Logger tagging every subsequent entry with
// component; the receiver is left unmodified.
func (l *Logger) WithComponent(component string) *Logger {
	clone := *l
	clone.component = component
	return &clone
}

// WithFields returns a logrus.Entry carrying fields in addition to the
// logger's component tag.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithProjectID returns a logrus.Entry tagged with a project_id field.
func (l *Logger) WithProjectID(projectID int) *logrus.Entry {
	return l.entry().WithField("project_id", projectID)
}

// WithOperation returns a logrus.Entry tagged with an operation field.
func (l *Logger) WithOperation(operation string) *logrus.Entry {
	return l.entry().WithField("operation", operation)
}

// Trace logs at trace level.
func (l *Logger) Trace(args ...interface{}) { l.entry().Trace(args...) }

// Debug logs at debug level.
func (l *Logger) Debug(args ...interface{}) { l.entry().Debug(args...) }

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry().Debugf(format, args...) }

// Info logs at info level.
func (l *Logger) Info(args ...interface{}) { l.entry().Info(args...) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.entry().Infof(format, args...) }

// Warn logs at warning level.
func (l *Logger) Warn(args ...interface{}) { l.entry().Warn(args...) }

// Warnf logs a formatted message at warning level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.entry().Warnf(format, args...) }

// Error logs at error level.
func (l *Logger) Error(args ...interface{}) { l.entry().Error(args...) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry().Errorf(format, args...) }

// IsDebugEnabled reports whether debug-level output is effectively enabled,
// either via the explicit debug flag or the configured level.
func (l *Logger) IsDebugEnabled() bool {
	return l.debug || l.level == LevelDebug
}

// IsLevelEnabled reports whether the given level would currently be logged.
func (l *Logger) IsLevelEnabled(level string) bool {
	return l.logrus.IsLevelEnabled(parseLogLevel(level))
}

// SetLevel changes the logger's active level.
func (l *Logger) SetLevel(level string) {
	l.level = level
	l.logrus.SetLevel(parseLogLevel(level))
}

// GetLevel returns the logger's currently configured level.
func (l *Logger) GetLevel() string {
	return l.level
}

// SetFormat changes the logger's output format.
func (l *Logger) SetFormat(format string) {
	l.format = format
	l.logrus.SetFormatter(newFormatter(format))
}

// parseLogLevel maps a level string to a logrus.Level, defaulting to
// logrus.InfoLevel for unrecognized input.
func parseLogLevel(level string) logrus.Level {
	switch level {
	case LevelTrace:
		return logrus.TraceLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelFatal:
		return logrus.FatalLevel
	case LevelPanic:
		return logrus.PanicLevel
	case LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.InfoLevel
	}
}
