// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Output is produced by a zap console core;
// the logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// String returns the config name of the level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVerbose:
		return "verbose"
	default:
		return "normal"
	}
}

// ParseLevel converts "off", "normal" or "verbose" (also "quiet" and
// "debug") into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "quiet", "none":
		return LevelOff, nil
	case "", "normal", "info":
		return LevelNormal, nil
	case "verbose", "debug":
		return LevelVerbose, nil
	}
	return LevelNormal, fmt.Errorf("logger: unknown level %q", s)
}

// zapLevel maps a Level onto the minimum zap level that is emitted.
// LevelOff maps above Fatal so nothing is enabled.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelOff:
		return zapcore.FatalLevel + 1
	case LevelVerbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	atom  zap.AtomicLevel
	sugar *zap.SugaredLogger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	atom := zap.NewAtomicLevelAt(level.zapLevel())

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "T"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = bracketLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(out)),
		atom,
	)

	return &Logger{
		atom:  atom,
		sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
	}
}

// bracketLevelEncoder renders levels as [DBG], [INF], [WRN], [ERR].
func bracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("[DBG]")
	case zapcore.InfoLevel:
		enc.AppendString("[INF]")
	case zapcore.WarnLevel:
		enc.AppendString("[WRN]")
	default:
		enc.AppendString("[ERR]")
	}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.atom.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	switch lvl := l.atom.Level(); {
	case lvl > zapcore.FatalLevel:
		return LevelOff
	case lvl <= zapcore.DebugLevel:
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered output. Call before exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
