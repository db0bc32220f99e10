// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// FileOptions controls rotation of the optional log file
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the package-level logger. Output goes to stderr; when
// file.Path is set, entries are also written as JSON to a rotating file.
func Init(debug bool, file FileOptions) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}

	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	if file.Path != "" {
		zapLogger = zapLogger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore(file, cfg.Level))
		}))
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

func fileCore(file FileOptions, level zap.AtomicLevel) zapcore.Core {
	maxSize := file.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}
	writer := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    maxSize,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zapcore.NewCore(encoder, zapcore.AddSync(writer), level)
}

// GetZapLogger returns the base zap logger
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		// Fallback logger if not initialized
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return baseLogger
}

// GetSugaredLogger returns the sugared logger instance without the
// package's caller skip, for handing to other packages
func GetSugaredLogger() *zap.SugaredLogger {
	return GetZapLogger().WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		log.Sync()
	}
}

// Package-level convenience functions
func Debugw(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Debugw(msg, keysAndValues...)
}

func Infof(template string, args ...interface{}) {
	GetZapLogger()
	log.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	GetZapLogger()
	log.Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	GetZapLogger()
	log.Errorf(template, args...)
	Sync()
	os.Exit(1)
}
