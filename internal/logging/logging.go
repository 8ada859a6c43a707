// Package logging builds the command's structured logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. verbose enables debug output.
func New(verbose bool) *zap.SugaredLogger {
	return NewWithSink(zapcore.Lock(os.Stderr), verbose)
}

// NewWithSink returns a console logger writing to sink.
func NewWithSink(sink zapcore.WriteSyncer, verbose bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), sink, level)
	return zap.New(core).Sugar()
}
