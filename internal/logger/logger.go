// Package logger holds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is a no-op logger until Init is called.
var L = zap.NewNop()

// Init builds the logger for the given mode ("release" or anything else
// for development output).
func Init(mode string) error {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := config.Build()
	if err != nil {
		return err
	}

	L = l
	return nil
}

func Sync() {
	if L != nil {
		_ = L.Sync()
	}
}
