// Package logging builds the zerolog loggers used across scalesync.
//
// Components take a zerolog.Logger through a setter or constructor and default
// to zerolog.Nop(), so nothing logs unless the entry point wires a logger in:
//
//	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
//	engine.SetLogger(log.With().Str("component", "reconcile").Logger())
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to w. Unknown levels fall back to info and
// unknown formats to console.
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	if strings.ToLower(format) != FormatJSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.DateTime,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	lvl := ParseLevel(level)
	logger := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if lvl <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Gorm adapts a zerolog logger for gorm. SQL statements are only logged at
// trace level; slow queries and errors follow the zerolog level.
func Gorm(l zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Silent
	switch {
	case l.GetLevel() <= zerolog.TraceLevel:
		level = gormlogger.Info
	case l.GetLevel() <= zerolog.WarnLevel:
		level = gormlogger.Warn
	case l.GetLevel() <= zerolog.ErrorLevel:
		level = gormlogger.Error
	}

	return gormlogger.New(gormWriter{l: l}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	l zerolog.Logger
}

// Printf emits without a level; gorm has already filtered by its own LogMode.
func (w gormWriter) Printf(format string, args ...any) {
	w.l.Log().Str("component", "gorm").Msgf(format, args...)
}
