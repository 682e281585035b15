package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger for humans: console formatting, debug level when debug is set.
// The CLI passes stderr so command output on stdout stays clean.
func New(w io.Writer, serviceName string, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !debug,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-6s|", i)
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	}
	return build(output, serviceName, debug)
}

// NewJSON builds a logger emitting one JSON object per line, for log collectors.
func NewJSON(w io.Writer, serviceName string, debug bool) zerolog.Logger {
	return build(w, serviceName, debug)
}

// Access builds the request log of the sandbox: console while debugging, JSON otherwise.
func Access(w io.Writer, serviceName string, debug bool) zerolog.Logger {
	if debug {
		return New(w, serviceName, true)
	}
	return NewJSON(w, serviceName, false)
}

func build(w io.Writer, serviceName string, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
