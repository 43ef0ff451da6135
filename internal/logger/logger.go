// Package logger builds the structured process logger (Zap + Lumberjack).
//
// Hourglass writes lifecycle and error events as JSON to
// <dir>/logs/hourglass.log. Rotation, compression and retention are
// handled by Lumberjack. When tee is set the same events are written,
// human-readable, to stderr; stdout is reserved for command output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the active log file inside <dir>/logs.
const FileName = "hourglass.log"

// ParseLevel converts a level name to a zap level. The empty string
// selects info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zap.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zap.InfoLevel, fmt.Errorf("log level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a *zap.SugaredLogger that writes JSON to
// <dir>/logs/hourglass.log at level and above. The logger is installed
// as the process-wide default via zap.ReplaceGlobals.
func New(dir, level string, tee bool) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	var console io.Writer
	if tee {
		console = os.Stderr
	}

	z := build(fileSink, console, lvl)
	zap.ReplaceGlobals(z.Desugar())

	z.Debugw("logger online", "level", lvl.String(), "tee", tee)
	return z, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}

// build assembles the cores. console may be nil.
func build(file io.Writer, console io.Writer, lvl zapcore.Level) *zap.SugaredLogger {
	encCfg := encoderConfig()
	fileSync := zapcore.AddSync(file)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileSync, lvl),
	}
	if console != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(console),
			lvl,
		))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(fileSync),
	).Sugar()
}
