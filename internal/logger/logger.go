// Package logger builds the zap logger shared by the wallet commands and
// services.
//
// The level comes from configuration ("debug", "info", "warn", "error");
// unknown values fall back to info. Format "json" selects the production
// encoder, anything else the human-readable console encoder.
//
//	log := logger.NewWriter(os.Stderr, "debug", "console")
//	log.Info("wallet connected", zap.String("provider", "delegated"))
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewWriter returns a logger writing to w. Commands use it so output follows
// cobra's configured error stream.
func NewWriter(w io.Writer, level, format string) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(ParseLevel(level)))
	return zap.New(core)
}

func ParseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zap.InfoLevel
	}
	return zapLevel
}
