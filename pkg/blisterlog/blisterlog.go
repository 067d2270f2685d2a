// Package blisterlog wraps zerolog into blister's global structured
// logger, grounded on the teacher's pkg/log.
package blisterlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init replaces it; until Init
// runs it is the zero Logger, which discards everything.
var Logger zerolog.Logger

// Level is a logging verbosity threshold.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagged with a component field,
// the grouping unit blister's packages log under (app, dispatcher,
// queryhandler, and main in cmd/blister).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithCommand creates a child logger tagged with the command name a
// dispatcher call is processing.
func WithCommand(command string) zerolog.Logger {
	return Logger.With().Str("command", command).Logger()
}

// WithQuery creates a child logger tagged with the query name a
// query-handler call is processing.
func WithQuery(query string) zerolog.Logger {
	return Logger.With().Str("query", query).Logger()
}
