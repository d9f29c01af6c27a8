// Package shared holds configuration, logging and the error taxonomy used across the plugin.
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NopLogger returns a [log.Logger] that discards everything, for components built without one.
func NopLogger() *log.Logger {
	return log.New(io.Discard)
}

// ComponentLogger returns a child of l that tags every entry with the component name.
// A nil l yields a discarding logger.
func ComponentLogger(l *log.Logger, component string) *log.Logger {
	if l == nil {
		l = NopLogger()
	}
	return l.With("component", component)
}

// SetLogLevel parses a level name (debug, info, warn, error) and applies it to the [log.Logger].
//
// Unknown names leave the logger at info.
func SetLogLevel(l *log.Logger, level string) {
	ll, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		ll = log.InfoLevel
	}
	l.SetLevel(ll)
}

// NewState returns a random value for the OAuth state parameter of one authorization attempt.
func NewState() string {
	return uuid.NewString()
}
