package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// Options controls where and how much the service logs
type Options struct {
	Service     string
	Environment string
	// Level overrides the environment default when it parses as a zerolog level
	Level  string
	Output io.Writer
}

// NewWithOptions builds a logger from opts. Development writes console output
// at debug level, every other environment writes JSON at info level.
func NewWithOptions(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	dev := strings.EqualFold(opts.Environment, "development")
	if dev {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &Logger{
		Logger: zerolog.New(out).
			Level(resolveLevel(opts.Level, dev)).
			With().
			Timestamp().
			Str("service", opts.Service).
			Logger(),
	}
}

func resolveLevel(name string, dev bool) zerolog.Level {
	if name != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(name)); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	if dev {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// NewWithWriter creates a JSON logger writing to w, mainly for tests
func NewWithWriter(serviceName string, w io.Writer) *Logger {
	return NewWithOptions(Options{Service: serviceName, Environment: "test", Level: "debug", Output: w})
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRequestID tags entries with the chi request id
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("request_id", requestID).Logger()}
}

// WithComponent tags entries with the emitting subsystem (upload, ocr, repository...)
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

// WithRecord tags entries with an identity record id
func (l *Logger) WithRecord(id string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("record_id", id).Logger()}
}
