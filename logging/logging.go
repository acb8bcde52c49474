// Package logging builds the zap logger used by the importer.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation: 10 MiB per file, 10 backups.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 10
)

// Level maps the CLI switches to a log level: errors only by default,
// info with verbose, everything with debug.
func Level(verbose, debug bool) zapcore.Level {
	switch {
	case debug:
		return zapcore.DebugLevel
	case verbose:
		return zapcore.InfoLevel
	}
	return zapcore.ErrorLevel
}

// New returns a console logger writing to stdout and, if logfile is set,
// to that file as well, rotating it as it grows.
func New(verbose, debug bool, logfile string) (*zap.SugaredLogger, error) {
	var z zap.Config
	if debug {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
		z.Encoding = "console"
		z.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		z.Sampling = nil
	}
	z.Level = zap.NewAtomicLevelAt(Level(verbose, debug))
	z.OutputPaths = []string{"stdout"}

	var opts []zap.Option
	if logfile != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(z.EncoderConfig),
			zapcore.AddSync(rotatingFile(logfile)),
			z.Level,
		)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	logger, err := z.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
	}
}
