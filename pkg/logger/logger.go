// Package logger wraps zap with the console encoding and color scheme used
// across the rest of the tree, so every package logs the same way without
// repeating encoder config at each call site.
package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper over *zap.Logger. It exists so callers depend on
// this package's constructor rather than wiring zapcore config themselves.
type Logger struct {
	log *zap.Logger
}

// New builds a Logger writing colorized console lines to stderr at level
// and above. level is one of the zapcore level names ("debug", "info",
// "warn", "error"); an unrecognized name falls back to info.
func New(level string) *Logger {
	config := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	encoder := zapcore.NewConsoleEncoder(config)
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), parseLevel(level))
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{log: zl}
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output but still need to satisfy the engine's constructor.
func Nop() *Logger {
	return &Logger{log: zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("[2006-01-02 | 15:04:05]"))
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorCode string
	switch level {
	case zapcore.DebugLevel:
		colorCode = "\033[36m" // Cyan
	case zapcore.InfoLevel:
		colorCode = "\033[32m" // Green
	case zapcore.WarnLevel:
		colorCode = "\033[33m" // Yellow
	case zapcore.ErrorLevel:
		colorCode = "\033[31m" // Red
	default:
		colorCode = "\033[0m"
	}
	enc.AppendString(colorCode + level.String() + "\033[0m")
}

func (z *Logger) Debug(msg string, fields ...zap.Field) { z.log.Debug(msg, fields...) }
func (z *Logger) Info(msg string, fields ...zap.Field)  { z.log.Info(msg, fields...) }
func (z *Logger) Warn(msg string, fields ...zap.Field)  { z.log.Warn(msg, fields...) }
func (z *Logger) Error(msg string, fields ...zap.Field) { z.log.Error(msg, fields...) }
func (z *Logger) Fatal(msg string, fields ...zap.Field) { z.log.Fatal(msg, fields...) }

// Sync flushes any buffered log entries. Call it before process exit.
func (z *Logger) Sync() error { return z.log.Sync() }
