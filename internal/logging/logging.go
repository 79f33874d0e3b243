// Package logging builds the zerolog loggers used across the module.
// Library packages accept a zerolog.Logger and default to a disabled
// one, so logging stays an application concern.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a structured JSON logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewConsole returns a human-readable logger for terminal sessions.
func NewConsole(level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel converts a configuration string into a zerolog level. The
// empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}
