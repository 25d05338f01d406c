// Package logger provides structured logging for the game server.
// Every scoring decision should be traceable through this.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger behind the small surface the rest of the
// server uses.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a console logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func NewLogger(level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	return &Logger{zl: zl}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Event logs a specific game event with its team for audit trails.
func (l *Logger) Event(eventType string, teamID string, details string) {
	l.zl.Info().
		Str("event", eventType).
		Str("team", teamID).
		Msg(details)
}
