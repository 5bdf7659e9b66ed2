// Package logging builds the zap logger the pipeline and CLI share.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a sugared logger at the given level. Production mode emits
// JSON; development mode emits colored console lines. An unparseable level
// falls back to info.
func New(level string, development bool) (*zap.SugaredLogger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	base, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

// Nop returns a logger that discards everything. Used where a logger is
// required but output is unwanted, mostly in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
