package ircb

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger logs to stderr and, if logfile is not empty, appends to logfile.
// Verbose enables debug level with coloured, human readable output.
func NewLogger(verbose bool, logfile string) (*zap.Logger, error) {
	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.OutputPaths = []string{"stderr"}
	if logfile != "" {
		config.OutputPaths = append(config.OutputPaths, logfile)
	}
	return config.Build()
}
