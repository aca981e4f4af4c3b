package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var zerologLevels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// ParseLevel maps a config string onto a Level, defaulting to info
func ParseLevel(s string) Level {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := zerologLevels[l]; ok {
		return l
	}
	return InfoLevel
}

func (l Level) zerolog() zerolog.Level {
	if zl, ok := zerologLevels[l]; ok {
		return zl
	}
	return zerolog.InfoLevel
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer // defaults to stdout
}

// Init replaces the global logger. Child loggers created before Init keep
// writing to the previous output.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(cfg.Level.zerolog())

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithWorker creates a child logger with worker_address field
func WithWorker(address string) zerolog.Logger {
	return Logger.With().Str("worker_address", address).Logger()
}

// WithGroup creates a child logger with worker_group field
func WithGroup(group string) zerolog.Logger {
	return Logger.With().Str("worker_group", group).Logger()
}

// WithTask creates a child logger with task field
func WithTask(name string) zerolog.Logger {
	return Logger.With().Str("task", name).Logger()
}

// WithRunID creates a child logger with run_id field
func WithRunID(runID string) zerolog.Logger {
	return Logger.With().Str("run_id", runID).Logger()
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }
