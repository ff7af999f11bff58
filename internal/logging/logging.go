// Package logging provides the leveled logger used by the molsim commands.
package logging

import (
	"io"
	"log"
	"strings"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string log level (case-insensitive). Unknown values
// give LevelInfo.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes "[LEVEL] message" lines through the standard log package. A
// named logger prefixes every message with its name, so the lines of several
// simulations sharing one output can be told apart.
type Logger struct {
	level Level
	name  string
	out   *log.Logger
}

// New creates a logger writing to the standard logger's output.
func New(level string) *Logger {
	return &Logger{level: ParseLevel(level), out: log.Default()}
}

// NewWithWriter creates a logger writing to w without timestamps.
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{level: ParseLevel(level), out: log.New(w, "", 0)}
}

// Named returns a logger sharing the level and output of l whose messages are
// prefixed with name. Names nest as parent/child; an empty name returns l.
func (l *Logger) Named(name string) *Logger {
	if name == "" {
		return l
	}
	child := *l
	if l.name != "" {
		name = l.name + "/" + name
	}
	child.name = name
	return &child
}

// Level returns the minimum level that is written.
func (l *Logger) Level() Level { return l.level }

func (l *Logger) shouldLog(level Level) bool {
	return level >= l.level
}

func (l *Logger) prefix(tag string) string {
	if l.name == "" {
		return "[" + tag + "] "
	}
	return "[" + tag + "] " + l.name + ": "
}

func (l *Logger) logf(level Level, tag, format string, v []any) {
	if l.shouldLog(level) {
		l.out.Printf(l.prefix(tag)+format, v...)
	}
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, "DEBUG", format, v) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, "INFO", format, v) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, "WARN", format, v) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, "ERROR", format, v) }

// Fatalf logs an error message and exits
func (l *Logger) Fatalf(format string, v ...any) {
	l.out.Fatalf(l.prefix("FATAL")+format, v...)
}
