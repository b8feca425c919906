// Package logging builds the charmbracelet loggers shared by every command.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w (stderr when nil) with timestamps
// enabled and the level parsed from level.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel maps debug|info|warn|error (any case) to a [log.Level]. Unknown
// values fall back to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// OrDefault returns l, or the package-level default logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// Component returns a child logger tagged with component=name.
func Component(l *log.Logger, name string) *log.Logger {
	return OrDefault(l).With("component", name)
}
