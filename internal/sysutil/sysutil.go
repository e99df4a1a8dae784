// Package sysutil provides small process-level helpers used during startup:
// global log level selection and console output for development runs. It
// exists so cmd wiring stays declarative and the choices are testable.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetLogLevel configures the global zerolog level from its string form.
// Supported values (case-insensitive): debug, info, warn/warning, error,
// fatal, panic. Empty or unknown values fall back to info — a busy board
// should never go dark because of a typo in LOG_LEVEL.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ConsoleWriter returns a human-readable zerolog writer for development
// runs (LOG_PRETTY). Production deployments keep the default JSON output.
func ConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}
